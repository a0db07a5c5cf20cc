//go:build !wasm
// +build !wasm

// Package gae provides a Google Cloud Datastore implementation of the
// tenantauth registration store. It supports multi-tenancy through Datastore
// namespaces.
//
// # Datastore Kinds
//
// The package uses the following Datastore kinds, all keyed by normalized email:
//   - User: Confirmed accounts
//   - PendingRegistration: Unconfirmed signups
//   - PendingOtp: The live one-time code per email
//   - Admin: Optional admin allow-list
//
// # Namespacing
//
// Pass a namespace when creating the store to isolate data between tenants:
//
//	store := gae.NewStore(client, "tenant-123")
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	store := gae.NewStore(client, "")  // default namespace
package gae
