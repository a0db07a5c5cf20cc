//go:build !wasm
// +build !wasm

// Package gorm provides a GORM-based implementation of the tenantauth
// registration store. It supports any database that GORM supports
// (PostgreSQL, SQLite, etc.) and keeps one row per key, so concurrent
// registrations for different emails never contend.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: Confirmed accounts, unique on email
//   - pending_registrations: Unconfirmed signups keyed by email
//   - pending_otps: The live one-time code per email
//   - admins: Optional admin allow-list
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	gormstore.AutoMigrate(db)
//	store := gormstore.NewStore(db)
package gorm
