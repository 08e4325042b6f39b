// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/bitgoldsuite/bgd/bgutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// NotificationType represents the type of a notification message.
type NotificationType int

// NotificationCallback is used for a caller to provide a callback for
// notifications about various chain events.
type NotificationCallback func(*Notification)

// Constants for the type of a notification message.
const (
	// NTBlockAccepted indicates the associated block was accepted into
	// the block chain.  Note that this does not necessarily mean it was
	// added to the main chain.  For that, use NTBlockConnected.
	NTBlockAccepted NotificationType = iota

	// NTBlockConnected indicates the associated block was connected to the
	// main chain.
	NTBlockConnected

	// NTBlockDisconnected indicates the associated block was disconnected
	// from the main chain.
	NTBlockDisconnected

	// NTReorganization indicates that a blockchain reorganization took
	// place.
	NTReorganization

	// NTDividendPayout indicates a connected block settled a quarter
	// boundary.
	NTDividendPayout
)

// notificationTypeStrings is a map of notification types back to their constant
// names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	NTBlockAccepted:     "NTBlockAccepted",
	NTBlockConnected:    "NTBlockConnected",
	NTBlockDisconnected: "NTBlockDisconnected",
	NTReorganization:    "NTReorganization",
	NTDividendPayout:    "NTDividendPayout",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// BlockAcceptedNtfnsData is the structure for data indicating information
// about a block being accepted.
type BlockAcceptedNtfnsData struct {
	OnMainChain bool
	Block       *bgutil.Block
}

// ReorganizationNtfnsData is the structure for data indicating information
// about a reorganization.
type ReorganizationNtfnsData struct {
	OldHash   chainhash.Hash
	OldHeight int32
	NewHash   chainhash.Hash
	NewHeight int32
}

// Notification defines notification that is sent to the caller via the callback
// function provided during the call to New and consists of a notification type
// as well as associated data that depends on the type as follows:
//   - NTBlockAccepted:     *BlockAcceptedNtfnsData
//   - NTBlockConnected:    *bgutil.Block
//   - NTBlockDisconnected: *bgutil.Block
//   - NTReorganization:    *ReorganizationNtfnsData
//   - NTDividendPayout:    *dividend.Snapshot
type Notification struct {
	Type NotificationType
	Data interface{}
}

// Subscribe to block chain notifications. Registers a callback to be executed
// when various events take place. See the documentation on Notification and
// NotificationType for details on the types and contents of notifications.
func (b *BlockChain) Subscribe(callback NotificationCallback) {
	b.notificationsLock.Lock()
	b.notifications = append(b.notifications, callback)
	b.notificationsLock.Unlock()
}

// sendNotification sends a notification with the passed type and data if the
// caller requested notifications by providing a callback function in the call
// to New.
func (b *BlockChain) sendNotification(typ NotificationType, data interface{}) {
	// Generate and send the notification.
	n := Notification{Type: typ, Data: data}
	b.notificationsLock.RLock()
	for _, callback := range b.notifications {
		callback(&n)
	}
	b.notificationsLock.RUnlock()
}

// queueNotification records a notification to be delivered once the chain
// lock is released.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) queueNotification(typ NotificationType, data interface{}) {
	b.pendingNtfns = append(b.pendingNtfns, Notification{Type: typ, Data: data})
}

// takeNotifications returns the queued notifications and clears the queue.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) takeNotifications() []Notification {
	ntfns := b.pendingNtfns
	b.pendingNtfns = nil
	return ntfns
}

// dispatchNotifications delivers queued notifications in the order they were
// raised.
//
// This function MUST be called without the chain state lock held.
func (b *BlockChain) dispatchNotifications(ntfns []Notification) {
	for i := range ntfns {
		b.sendNotification(ntfns[i].Type, ntfns[i].Data)
	}
}
