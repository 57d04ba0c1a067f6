package principal

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const roleAssignmentsBucket = "role_assignments"

// BoltMirror is an optional embedded durable mirror of role-assignment rows,
// grounded in the teacher's db/bolt.DB helper (bucket-scoped PutJSON/
// ForEachJSON over a single file). Postgres remains the system of record:
// Store writes to the mirror alongside AssignRole/RemoveRoleAssignment and
// never reads from it, and Check always evaluates against Postgres — the
// mirror is there for operators who want a local snapshot of the assignment
// table.
type BoltMirror struct {
	db *bolt.DB
}

// OpenBoltMirror opens or creates the bbolt file at path.
func OpenBoltMirror(path string) (*BoltMirror, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("principal: opening bolt mirror: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(roleAssignmentsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("principal: creating bolt mirror bucket: %w", err)
	}
	return &BoltMirror{db: db}, nil
}

func (m *BoltMirror) Close() error { return m.db.Close() }

// RecordAssignment appends roleId to the role set mirrored for actorId.
func (m *BoltMirror) RecordAssignment(actorId, roleId string) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(roleAssignmentsBucket))
		roles, err := readRoles(b, actorId)
		if err != nil {
			return err
		}
		for _, r := range roles {
			if r == roleId {
				return nil
			}
		}
		roles = append(roles, roleId)
		return putRoles(b, actorId, roles)
	})
}

// RemoveAssignment drops roleId from the role set mirrored for actorId.
func (m *BoltMirror) RemoveAssignment(actorId, roleId string) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(roleAssignmentsBucket))
		roles, err := readRoles(b, actorId)
		if err != nil {
			return err
		}
		kept := roles[:0]
		for _, r := range roles {
			if r != roleId {
				kept = append(kept, r)
			}
		}
		return putRoles(b, actorId, kept)
	})
}

// RolesFor returns the role ids mirrored for actorId.
func (m *BoltMirror) RolesFor(actorId string) ([]string, error) {
	var roles []string
	err := m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(roleAssignmentsBucket))
		var err error
		roles, err = readRoles(b, actorId)
		return err
	})
	return roles, err
}

func readRoles(b *bolt.Bucket, actorId string) ([]string, error) {
	data := b.Get([]byte(actorId))
	if data == nil {
		return nil, nil
	}
	var roles []string
	if err := json.Unmarshal(data, &roles); err != nil {
		return nil, fmt.Errorf("principal: decoding mirrored roles for %s: %w", actorId, err)
	}
	return roles, nil
}

func putRoles(b *bolt.Bucket, actorId string, roles []string) error {
	data, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("principal: encoding mirrored roles for %s: %w", actorId, err)
	}
	return b.Put([]byte(actorId), data)
}
