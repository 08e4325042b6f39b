// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

// NotificationType represents the type of a notification message.
type NotificationType int

// NotificationCallback is used for a caller to provide a callback for
// notifications about various mempool events.
type NotificationCallback func(*Notification)

// Constants for the type of a notification message.
const (
	// NTTxAccepted indicates a transaction was admitted to the pool.
	NTTxAccepted NotificationType = iota

	// NTTxRemoved indicates a transaction left the pool for any reason
	// other than eviction.
	NTTxRemoved

	// NTTxEvicted indicates a transaction was evicted to bring the pool
	// back under its cap.
	NTTxEvicted
)

// notificationTypeStrings is a map of notification types back to their constant
// names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	NTTxAccepted: "NTTxAccepted",
	NTTxRemoved:  "NTTxRemoved",
	NTTxEvicted:  "NTTxEvicted",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// Notification defines notification that is sent to the caller via the callback
// function provided to Subscribe and consists of a notification type as well as
// associated data that depends on the type as follows:
//   - NTTxAccepted: *TxDesc
//   - NTTxRemoved:  *btcutil.Tx
//   - NTTxEvicted:  *btcutil.Tx
type Notification struct {
	Type NotificationType
	Data interface{}
}

// Subscribe registers a callback to be executed when transactions enter or
// leave the pool.  Callbacks run after the pool lock is released.
func (mp *TxPool) Subscribe(callback NotificationCallback) {
	mp.notificationsLock.Lock()
	mp.notifications = append(mp.notifications, callback)
	mp.notificationsLock.Unlock()
}

// sendNotification sends a notification with the passed type and data to all
// subscribers.
func (mp *TxPool) sendNotification(typ NotificationType, data interface{}) {
	// Generate and send the notification.
	n := Notification{Type: typ, Data: data}
	mp.notificationsLock.RLock()
	for _, callback := range mp.notifications {
		callback(&n)
	}
	mp.notificationsLock.RUnlock()
}

// pendingNotification is a notification queued while the pool lock is held.
type pendingNotification struct {
	typ  NotificationType
	data interface{}
}

// queueRemoved queues removal notifications for txns.
func (mp *TxPool) queueRemoved(typ NotificationType, txns []*btcutil.Tx) {
	for _, tx := range txns {
		mp.pending = append(mp.pending, pendingNotification{typ, tx})
	}
}

// flushNotifications delivers notifications queued under the pool lock.  It
// MUST be called without the pool lock held.
func (mp *TxPool) flushNotifications(pending []pendingNotification) {
	for _, n := range pending {
		mp.sendNotification(n.typ, n.data)
	}
}
