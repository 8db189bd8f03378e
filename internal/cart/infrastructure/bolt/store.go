// Package bolt stores carts as JSON documents in a single bbolt bucket.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/dmehra2102/sofa-storefront/internal/cart/domain"
)

var cartsBucket = []byte("carts")

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cart store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cartsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create carts bucket: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Create(_ context.Context, c domain.Cart) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(cartsBucket), c)
	})
}

func (s *Store) Get(_ context.Context, id string) (domain.Cart, error) {
	var c domain.Cart
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		c, err = get(tx.Bucket(cartsBucket), id)
		return err
	})
	return c, err
}

func (s *Store) Update(_ context.Context, id string, fn func(*domain.Cart) error) (domain.Cart, error) {
	var c domain.Cart
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(cartsBucket)
		var err error
		if c, err = get(b, id); err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}
		return put(b, c)
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return c, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(cartsBucket)
		if b.Get([]byte(id)) == nil {
			return domain.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

func get(b *bolt.Bucket, id string) (domain.Cart, error) {
	v := b.Get([]byte(id))
	if v == nil {
		return domain.Cart{}, domain.ErrNotFound
	}
	var c domain.Cart
	if err := json.Unmarshal(v, &c); err != nil {
		return domain.Cart{}, fmt.Errorf("decode cart %s: %w", id, err)
	}
	return c, nil
}

func put(b *bolt.Bucket, c domain.Cart) error {
	v, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", c.ID, err)
	}
	return b.Put([]byte(c.ID), v)
}
