/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/fabric-rest-gateway/pkg/client/resmgmt"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/policydsl"
	"github.com/hyperledger/fabric-rest-gateway/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-rest-gateway/pkg/gateway"
)

const defaultInitFunction = "init"

// TransactionRequest is the body of invoke and query requests
type TransactionRequest struct {
	FunctionName       string            `json:"functionName"`
	Args               []string          `json:"args"`
	Orderers           []string          `json:"orderers"`
	OrgName            string            `json:"orgName"`
	Peers              []string          `json:"peers"`
	Transient          map[string]string `json:"transient,omitempty"`
	UseDiscoverService bool              `json:"useDiscoverService,omitempty"`
}

// InstantiateRequest is the body of chaincode instantiate requests
type InstantiateRequest struct {
	ChannelName       string   `json:"channelName"`
	ChaincodeName     string   `json:"chaincodeName"`
	ChaincodeVersion  string   `json:"chaincodeVersion"`
	ChaincodePath     string   `json:"chaincodePath"`
	ChaincodeType     string   `json:"chaincodeType,omitempty"`
	FunctionName      string   `json:"functionName,omitempty"`
	Args              []string `json:"args"`
	OrgName           string   `json:"orgName"`
	Peers             []string `json:"peers"`
	Orderer           string   `json:"orderer,omitempty"`
	EndorsementPolicy string   `json:"endorsementPolicy,omitempty"`
	CollectionsConfig string   `json:"collectionsConfig,omitempty"`
	Upgrade           bool     `json:"upgrade,omitempty"`
}

// ChannelRequest is the body of channel create and join requests
type ChannelRequest struct {
	ChannelName       string   `json:"channelName"`
	ChannelConfigPath string   `json:"channelConfigPath,omitempty"`
	OrgName           string   `json:"orgName"`
	Peers             []string `json:"peers,omitempty"`
	Orderer           string   `json:"orderer,omitempty"`
	// SigningOrgs are the organizations whose admins sign the channel
	// configuration; the requesting organization by default
	SigningOrgs []string `json:"signingOrgs,omitempty"`
}

func (s *Server) invoke(w http.ResponseWriter, r *http.Request) {
	s.transact(w, r, true)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	s.transact(w, r, false)
}

func (s *Server) transact(w http.ResponseWriter, r *http.Request, submit bool) {
	vars := mux.Vars(r)

	var req TransactionRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "", err)
		return
	}

	gw, err := s.gateways.Gateway(req.OrgName)
	if err != nil {
		fail(w, r, "", err)
		return
	}
	network, err := gw.GetNetwork(vars["channel"])
	if err != nil {
		fail(w, r, "", err)
		return
	}

	txn, err := network.GetContract(vars["contractId"]).CreateTransaction(req.FunctionName, transactionOptions(r, req)...)
	if err != nil {
		fail(w, r, "", err)
		return
	}

	logger.Infof("[%s] %s %s.%s on channel [%s] for org [%s]", requestID(r), verb(submit), vars["contractId"], req.FunctionName, network.Name(), gw.Org())

	var payload []byte
	if submit {
		payload, err = txn.Submit(req.Args...)
	} else {
		payload, err = txn.Evaluate(req.Args...)
	}
	txID := txn.Result().TransactionID
	if err != nil {
		fail(w, r, txID, err)
		return
	}

	succeed(w, r, Response{TxID: string(txID), Payload: string(payload), Notes: notes(txn.Result().Verdict)})
}

func transactionOptions(r *http.Request, req TransactionRequest) []gateway.TransactionOption {
	opts := []gateway.TransactionOption{gateway.WithContext(r.Context())}
	if !req.UseDiscoverService && len(req.Peers) > 0 {
		opts = append(opts, gateway.WithEndorsingPeers(req.Peers...))
	}
	if len(req.Orderers) > 0 {
		opts = append(opts, gateway.WithOrderers(req.Orderers...))
	}
	if len(req.Transient) > 0 {
		transient := make(map[string][]byte, len(req.Transient))
		for k, v := range req.Transient {
			transient[k] = []byte(v)
		}
		opts = append(opts, gateway.WithTransient(transient))
	}
	return opts
}

func verb(submit bool) string {
	if submit {
		return "Submitting"
	}
	return "Evaluating"
}

func (s *Server) instantiate(w http.ResponseWriter, r *http.Request) {
	var req InstantiateRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "", err)
		return
	}

	ccReq, err := deployRequest(req)
	if err != nil {
		fail(w, r, "", err)
		return
	}

	rc, err := s.resources(req.OrgName)
	if err != nil {
		fail(w, r, "", err)
		return
	}

	opts := []resmgmt.RequestOption{resmgmt.WithParentContext(r.Context())}
	if len(req.Peers) > 0 {
		opts = append(opts, resmgmt.WithTargetEndpoints(req.Peers...))
	}
	if req.Orderer != "" {
		opts = append(opts, resmgmt.WithOrdererEndpoint(req.Orderer))
	}

	logger.Infof("[%s] Deploying chaincode %s:%s on channel [%s] (upgrade: %t)", requestID(r), req.ChaincodeName, req.ChaincodeVersion, req.ChannelName, req.Upgrade)

	var resp resmgmt.InstantiateCCResponse
	if req.Upgrade {
		var up resmgmt.UpgradeCCResponse
		up, err = rc.UpgradeCC(req.ChannelName, resmgmt.UpgradeCCRequest(ccReq), opts...)
		resp = resmgmt.InstantiateCCResponse(up)
	} else {
		resp, err = rc.InstantiateCC(req.ChannelName, ccReq, opts...)
	}
	if err != nil {
		fail(w, r, "", err)
		return
	}
	if !resp.Verdict.Succeeded() {
		fail(w, r, resp.TransactionID, &gateway.VerdictError{Verdict: resp.Verdict})
		return
	}

	succeed(w, r, Response{TxID: string(resp.TransactionID), Notes: notes(resp.Verdict)})
}

// deployRequest turns the body into an lscc deployment; the init function
// is passed as the first argument
func deployRequest(req InstantiateRequest) (resmgmt.InstantiateCCRequest, error) {
	ccReq := resmgmt.InstantiateCCRequest{
		Name:    req.ChaincodeName,
		Path:    req.ChaincodePath,
		Version: req.ChaincodeVersion,
	}

	if req.ChaincodeType != "" {
		lang, ok := pb.ChaincodeSpec_Type_value[strings.ToUpper(req.ChaincodeType)]
		if !ok {
			return ccReq, badRequest{"unknown chaincode type: " + req.ChaincodeType}
		}
		ccReq.Lang = pb.ChaincodeSpec_Type(lang)
	}

	fcn := req.FunctionName
	if fcn == "" {
		fcn = defaultInitFunction
	}
	ccReq.Args = append(ccReq.Args, []byte(fcn))
	for _, arg := range req.Args {
		ccReq.Args = append(ccReq.Args, []byte(arg))
	}

	if req.EndorsementPolicy != "" {
		policy, err := policydsl.FromString(req.EndorsementPolicy)
		if err != nil {
			return ccReq, badRequest{"invalid endorsement policy: " + err.Error()}
		}
		ccReq.Policy = policy
	}

	if req.CollectionsConfig != "" {
		collections, err := resmgmt.CollectionConfigFromFile(req.CollectionsConfig)
		if err != nil {
			return ccReq, badRequest{"invalid collections config: " + err.Error()}
		}
		ccReq.CollConfig = collections
	}
	return ccReq, nil
}

func (s *Server) createChannel(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "", err)
		return
	}

	rc, err := s.resources(req.OrgName)
	if err != nil {
		fail(w, r, "", err)
		return
	}

	signingOrgs := req.SigningOrgs
	if len(signingOrgs) == 0 {
		signingOrgs = []string{req.OrgName}
	}
	var signers []msp.SigningIdentity
	for _, org := range signingOrgs {
		gw, err := s.gateways.Gateway(org)
		if err != nil {
			fail(w, r, "", err)
			return
		}
		admin, err := gw.AdminIdentity()
		if err != nil {
			fail(w, r, "", err)
			return
		}
		signers = append(signers, admin)
	}

	opts := []resmgmt.RequestOption{resmgmt.WithParentContext(r.Context())}
	if req.Orderer != "" {
		opts = append(opts, resmgmt.WithOrdererEndpoint(req.Orderer))
	}

	logger.Infof("[%s] Creating channel [%s] signed by %d organizations", requestID(r), req.ChannelName, len(signers))

	resp, err := rc.SaveChannel(resmgmt.SaveChannelRequest{
		ChannelID:         req.ChannelName,
		ChannelConfigPath: req.ChannelConfigPath,
		SigningIdentities: signers,
	}, opts...)
	if err != nil {
		fail(w, r, "", err)
		return
	}

	succeed(w, r, Response{TxID: string(resp.TransactionID)})
}

func (s *Server) joinChannel(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, "", err)
		return
	}

	rc, err := s.resources(req.OrgName)
	if err != nil {
		fail(w, r, "", err)
		return
	}

	opts := []resmgmt.RequestOption{resmgmt.WithParentContext(r.Context())}
	if len(req.Peers) > 0 {
		opts = append(opts, resmgmt.WithTargetEndpoints(req.Peers...))
	}
	if req.Orderer != "" {
		opts = append(opts, resmgmt.WithOrdererEndpoint(req.Orderer))
	}

	logger.Infof("[%s] Joining channel [%s]", requestID(r), req.ChannelName)

	if err := rc.JoinChannel(req.ChannelName, opts...); err != nil {
		fail(w, r, "", err)
		return
	}

	succeed(w, r, Response{})
}

// listChannels answers GET /channels?orgName=Org1&peer=peer0.org1.example.com
func (s *Server) listChannels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	rc, err := s.resources(q.Get("orgName"))
	if err != nil {
		fail(w, r, "", err)
		return
	}

	peer := q.Get("peer")
	if peer == "" {
		fail(w, r, "", badRequest{"peer is required"})
		return
	}

	resp, err := rc.QueryChannels(resmgmt.WithTargetEndpoints(peer), resmgmt.WithParentContext(r.Context()))
	if err != nil {
		fail(w, r, "", err)
		return
	}

	channels := []string{}
	for _, ch := range resp.Channels {
		channels = append(channels, ch.ChannelId)
	}
	succeed(w, r, Response{Channels: channels})
}

func (s *Server) resources(org string) (*resmgmt.Client, error) {
	gw, err := s.gateways.Gateway(org)
	if err != nil {
		return nil, err
	}
	return gw.Resources()
}
