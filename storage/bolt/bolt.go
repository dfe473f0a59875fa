// Package bolt is a Storage backed by a bbolt file.
package bolt

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/BenIlies/NoPASARAN-sub000/storage"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

// Bucket holds reports keyed by run id.
var Bucket = []byte("reports")

type Storage struct {
	Debug  bool
	Logger logrus.FieldLogger

	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	if filename == "" {
		return nil, errors.New("no bolt filename")
	}
	return &Storage{
		filename: filename,
		Logger:   logrus.StandardLogger(),
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return errors.Wrap(err, s.filename)
	}
	if err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(Bucket)
		return err
	}); err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		s.Logger.Debugf("bolt storage "+format, args...)
	}
}

func (s *Storage) WriteReport(ctx context.Context, r *storage.Report) error {
	if r.Id == "" {
		return errors.New("report has no id")
	}
	js, err := json.Marshal(r)
	if err != nil {
		return errors.Wrapf(err, "report %s", r.Id)
	}
	s.logf("WriteReport %s (%d bytes)", r.Id, len(js))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(Bucket).Put([]byte(r.Id), js)
	})
}

func (s *Storage) GetReport(ctx context.Context, id string) (*storage.Report, error) {
	s.logf("GetReport %s", id)
	var r *storage.Report
	err := s.db.View(func(tx *bolt.Tx) error {
		bs := tx.Bucket(Bucket).Get([]byte(id))
		if bs == nil {
			return storage.NotFound
		}
		r = &storage.Report{}
		return json.Unmarshal(bs, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Storage) ListReports(ctx context.Context) ([]*storage.Report, error) {
	rs := make([]*storage.Report, 0, 32)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(Bucket).Cursor()
		for id, bs := c.First(); id != nil; id, bs = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r storage.Report
			if err := json.Unmarshal(bs, &r); err != nil {
				return errors.Wrapf(err, "report %s", id)
			}
			rs = append(rs, r.Summary())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Started.Before(rs[j].Started)
	})

	s.logf("ListReports found %d", len(rs))

	return rs, nil
}
