/*
Package notifier tracks principal revisions and broadcasts ChangedPrincipals
batches to subscribers, grounded on the same non-blocking, buffered-channel
broker pattern used elsewhere in mailcore.

	┌──────────────────── NOTIFIER ─────────────────────────────┐
	│                                                            │
	│  Notify(reason, accountIDs...)                            │
	│       │                                                    │
	│       ▼                                                    │
	│  revisions[accountID]++  (per distinct account)           │
	│       │                                                    │
	│       ▼                                                    │
	│  batchCh (buffered; Notify blocks when full)              │
	│       │                                                    │
	│       ▼                                                    │
	│  run() ──▶ broadcast ──▶ each Subscriber (buffered, best   │
	│                           effort — full buffers drop)      │
	└────────────────────────────────────────────────────────────┘

Callers that need to know whether their cached view of an account's
permissions is stale compare a previously observed Revision against the
current one.
*/
package notifier
