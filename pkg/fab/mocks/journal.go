/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

import "sync"

// Journal records the order in which mock nodes were called
type Journal struct {
	mutex   sync.Mutex
	entries []string
}

// Record appends an entry
func (j *Journal) Record(entry string) {
	if j == nil {
		return
	}
	j.mutex.Lock()
	defer j.mutex.Unlock()
	j.entries = append(j.entries, entry)
}

// Entries returns a copy of the recorded entries
func (j *Journal) Entries() []string {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	return append([]string(nil), j.entries...)
}

// Index returns the position of the first entry equal to e, or -1
func (j *Journal) Index(e string) int {
	for i, entry := range j.Entries() {
		if entry == e {
			return i
		}
	}
	return -1
}
