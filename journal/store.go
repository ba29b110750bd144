package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var (
	bucketJobs        = []byte("jobs")
	bucketJobsCreated = []byte("jobs_created")
)

// Store is a bbolt-backed job journal.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens or creates the journal database at dbPath.
// The parent directory is created if it does not exist.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("journal: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("journal: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketJobs, bucketJobsCreated} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// createdKey orders jobs by creation time, with the id as a tiebreaker.
func createdKey(t time.Time, id string) []byte {
	k := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(k, uint64(t.UnixNano()))
	return append(k, id...)
}

func encodeJob(j *Job) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(j); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeJob(data []byte) (*Job, error) {
	var j Job
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&j); err != nil {
		return nil, err
	}
	return &j, nil
}

func getJob(b *bbolt.Bucket, id string) (*Job, error) {
	data := b.Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	j, err := decodeJob(data)
	if err != nil {
		return nil, fmt.Errorf("journal: decode job %s: %w", id, err)
	}
	return j, nil
}

func putJob(b *bbolt.Bucket, j *Job) error {
	data, err := encodeJob(j)
	if err != nil {
		return fmt.Errorf("journal: encode job %s: %w", j.ID, err)
	}
	return b.Put([]byte(j.ID), data)
}

// Put inserts or replaces job. A job without an ID gets a new UUID and a
// zero Status becomes StatusPlanned. CreatedAt is kept across updates.
func (s *Store) Put(job *Job) error {
	if job == nil {
		return ErrNilJob
	}
	now := s.now().UTC()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = StatusPlanned
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
		job.FailedIndex = NoFailure
	}
	job.UpdatedAt = now

	return s.db.Update(func(tx *bbolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		if prev, err := getJob(jobs, job.ID); err == nil {
			job.CreatedAt = prev.CreatedAt
		}
		if err := putJob(jobs, job); err != nil {
			return err
		}
		return tx.Bucket(bucketJobsCreated).Put(createdKey(job.CreatedAt, job.ID), []byte(job.ID))
	})
}

// Get returns the job with the given id.
func (s *Store) Get(id string) (*Job, error) {
	var job *Job
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		job, err = getJob(tx.Bucket(bucketJobs), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// List returns up to limit jobs, newest first. A limit <= 0 returns all.
func (s *Store) List(limit int) ([]*Job, error) {
	var out []*Job
	err := s.db.View(func(tx *bbolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		c := tx.Bucket(bucketJobsCreated).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			j, err := getJob(jobs, string(v))
			if err != nil {
				return err
			}
			out = append(out, j)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordBroadcast appends txid as the index-th accepted transaction of the
// job. Recording the same index twice is a no-op.
func (s *Store) RecordBroadcast(id string, index int, txid string) error {
	return s.update(id, func(j *Job) error {
		if j.Status.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrJobClosed, id, j.Status)
		}
		switch {
		case index < len(j.Broadcast) && j.Broadcast[index] == txid:
			return nil
		case index != len(j.Broadcast):
			return fmt.Errorf("%w: index %d, %d recorded", ErrOutOfOrder, index, len(j.Broadcast))
		}
		j.Broadcast = append(j.Broadcast, txid)
		j.Status = StatusBroadcasting
		return nil
	})
}

// Finish closes the job. A nil cause marks it completed with the given
// inscription id; otherwise it becomes failed, or partial when any
// transaction was already accepted.
func (s *Store) Finish(id, inscriptionID string, cause error) (*Job, error) {
	var out *Job
	err := s.update(id, func(j *Job) error {
		if j.Status.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrJobClosed, id, j.Status)
		}
		j.finish(inscriptionID, cause)
		out = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Resume reopens a job whose chain was signed but not fully accepted,
// either because it finished failed or partial or because the process
// stopped mid-chain. The job returns to StatusBroadcasting with its failure
// cleared; Broadcast keeps the transactions already accepted.
func (s *Store) Resume(id string) (*Job, error) {
	var out *Job
	err := s.update(id, func(j *Job) error {
		switch {
		case j.Status == StatusCompleted:
			return fmt.Errorf("%w: %s is %s", ErrJobClosed, id, j.Status)
		case len(j.TxIDs) == 0 || len(j.RawTxs) != len(j.TxIDs):
			return fmt.Errorf("%w: %s has no signed chain", ErrNotResumable, id)
		}
		j.Status = StatusBroadcasting
		j.FailedIndex = NoFailure
		j.Error = ""
		out = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) update(id string, fn func(*Job) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		jobs := tx.Bucket(bucketJobs)
		j, err := getJob(jobs, id)
		if err != nil {
			return err
		}
		if err := fn(j); err != nil {
			return err
		}
		j.UpdatedAt = s.now().UTC()
		return putJob(jobs, j)
	})
}
