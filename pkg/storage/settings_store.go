// Package storage persists per-network node settings and the selected
// network in a bbolt database.
//
// # Thread Safety Guarantees
//
// SettingsStore is safe for concurrent use by multiple goroutines. Reads run
// in bbolt View transactions and may proceed concurrently; writes run in
// Update transactions, which bbolt serializes. No extra locking is added.
//
// Values are protobuf-encoded google.protobuf.Struct messages so new fields
// can be added without migrating existing databases.
package storage

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/salahayoub/bonsai/pkg/engine"
)

// Bucket names for BoltDB storage
var (
	settingsBucket = []byte("settings")
	metaBucket     = []byte("meta")
)

// Key for the selected network in the meta bucket
var keyNetwork = []byte("network")

// SettingsStore is the bbolt-backed settings database.
type SettingsStore struct {
	db   *bbolt.DB
	path string
}

// Open opens or creates the database at path. It fails after a second if
// another process holds the file lock.
func Open(path string) (*SettingsStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(settingsBucket); err != nil {
			return fmt.Errorf("failed to create settings bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(metaBucket); err != nil {
			return fmt.Errorf("failed to create meta bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SettingsStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SettingsStore) Path() string {
	return s.path
}

// Close releases all database resources.
func (s *SettingsStore) Close() error {
	return s.db.Close()
}

// Load returns the settings saved for network, or defaults when none are.
func (s *SettingsStore) Load(network engine.Network) (NodeSettings, error) {
	settings := DefaultNodeSettings()
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(settingsBucket).Get([]byte(network.String()))
		if data == nil {
			return nil
		}
		var msg structpb.Struct
		if err := proto.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("failed to decode %s settings: %w", network, err)
		}
		return settings.fromStruct(&msg)
	})
	if err != nil {
		return DefaultNodeSettings(), err
	}
	return settings, nil
}

// Save validates and stores settings for network.
func (s *SettingsStore) Save(network engine.Network, settings NodeSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	msg, err := settings.toStruct()
	if err != nil {
		return err
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s settings: %w", network, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(settingsBucket).Put([]byte(network.String()), data)
	})
}

// SelectedNetwork returns the persisted network selection. ok is false when
// nothing was selected yet.
func (s *SettingsStore) SelectedNetwork() (network engine.Network, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(keyNetwork)
		if v == nil {
			return nil
		}
		n, perr := engine.ParseNetwork(string(v))
		if perr != nil {
			return perr
		}
		network, ok = n, true
		return nil
	})
	return network, ok, err
}

// SelectNetwork persists the network selection.
func (s *SettingsStore) SelectNetwork(network engine.Network) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(metaBucket).Put(keyNetwork, []byte(network.String()))
	})
}

// Networks lists the networks that have saved settings, in key order.
func (s *SettingsStore) Networks() ([]engine.Network, error) {
	var out []engine.Network
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(settingsBucket).ForEach(func(k, _ []byte) error {
			n, err := engine.ParseNetwork(string(k))
			if err != nil {
				return err
			}
			out = append(out, n)
			return nil
		})
	})
	return out, err
}

// Delete removes the saved settings for network.
func (s *SettingsStore) Delete(network engine.Network) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(settingsBucket).Delete([]byte(network.String()))
	})
}
