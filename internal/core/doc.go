// Package core holds the registration domain: the member record, the record
// store contract, and the services the HTTP layer calls.
//
// # Record stores
//
// A [Store] is selected once at startup (see internal/store) and shared by
// every request. All stores append and export; stores that can also list
// their records implement [Lister], which is what enables the admin
// endpoints. A store that implements [BestEffortStore] and reports true has
// its append failures logged and swallowed instead of failing the request.
//
// # Submission flow
//
//  1. [SubmissionService.Submit] assigns a member id ("RW" + four digits)
//     and a timestamp. Nothing is validated.
//  2. The record is appended to the store.
//  3. A welcome email is handed to the [Dispatcher] and the call returns
//     without waiting for delivery.
//
// # Known limitations
//
// Member ids are random and may collide; no uniqueness check is made.
// The file store rewrites the whole workbook per append without locking, so
// concurrent appends can lose a record.
// Workbooks refuse cells longer than 32767 characters or holding characters
// XML cannot carry, so the file store fails such an append and every store
// fails an export that contains one.
package core
