package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/datastore"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	oa "github.com/panyam/tenantauth"
	"github.com/panyam/tenantauth/config"
	"github.com/panyam/tenantauth/stores"
	"github.com/panyam/tenantauth/stores/gae"
	gormstore "github.com/panyam/tenantauth/stores/gorm"
)

// adminStore is what every store driver provides
type adminStore interface {
	oa.RegistrationStore
	oa.AdminList
	AddAdmin(ctx context.Context, email string) error
}

type storeHandle struct {
	store adminStore
	close func() error
}

func openStore(ctx context.Context, cfg *config.Config) (*storeHandle, error) {
	switch cfg.StoreDriver {
	case config.StoreFS:
		slog.Info("using filesystem store", "path", cfg.StorePath)
		return &storeHandle{store: stores.NewFSBlobStore(cfg.StorePath)}, nil

	case config.StoreS3:
		client, err := stores.NewS3Client(ctx, stores.S3Options{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("using s3 store", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
		backend := &stores.S3Backend{Client: client, Bucket: cfg.S3Bucket, Prefix: cfg.S3Prefix}
		return &storeHandle{store: stores.NewBlobStore(backend)}, nil

	case config.StoreSQL:
		db, err := openDB(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		if err := gormstore.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		s := gormstore.NewStore(db)
		return &storeHandle{
			store: s,
			close: func() error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		}, nil

	case config.StoreDatastore:
		client, err := datastore.NewClient(ctx, cfg.DatastoreProject)
		if err != nil {
			return nil, fmt.Errorf("datastore client: %w", err)
		}
		slog.Info("using datastore store", "project", cfg.DatastoreProject, "namespace", cfg.DatastoreNamespace)
		return &storeHandle{store: gae.NewStore(client, cfg.DatastoreNamespace), close: client.Close}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func openDB(dsn string) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		slog.Info("using postgres store")
		dialector = postgres.Open(dsn)
	} else {
		slog.Info("using sqlite store", "path", dsn)
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}
