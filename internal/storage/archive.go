package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/shopfront/apiserver/types"
)

const archiveContentType = "application/json"

// ArchivedUser is the snapshot written for a deleted account. It never
// contains the password hash.
type ArchivedUser struct {
	User       types.User `json:"user"`
	ArchivedAt time.Time  `json:"archivedAt"`
}

// UserArchive writes deleted accounts to <prefix>/<id>.json.
type UserArchive struct {
	backend ObjectStorage
	prefix  string
	now     func() time.Time
}

func NewUserArchive(backend ObjectStorage, prefix string) *UserArchive {
	return &UserArchive{
		backend: backend,
		prefix:  strings.Trim(prefix, "/"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Key returns the object key for the user id.
func (a *UserArchive) Key(id string) string {
	if a.prefix == "" {
		return id + ".json"
	}
	return path.Join(a.prefix, id+".json")
}

// Archive stores a snapshot of user.
func (a *UserArchive) Archive(ctx context.Context, user types.User) error {
	data, err := json.Marshal(ArchivedUser{User: user, ArchivedAt: a.now()})
	if err != nil {
		return fmt.Errorf("encode archived user: %w", err)
	}
	if err := a.backend.Put(ctx, a.Key(user.ID), bytes.NewReader(data), int64(len(data)), archiveContentType); err != nil {
		return fmt.Errorf("archive user %s: %w", user.ID, err)
	}
	return nil
}

// Load reads the snapshot for id.
func (a *UserArchive) Load(ctx context.Context, id string) (ArchivedUser, error) {
	reader, err := a.backend.Get(ctx, a.Key(id))
	if err != nil {
		return ArchivedUser{}, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return ArchivedUser{}, fmt.Errorf("read archived user %s: %w", id, err)
	}
	var archived ArchivedUser
	if err := json.Unmarshal(data, &archived); err != nil {
		return ArchivedUser{}, fmt.Errorf("decode archived user %s: %w", id, err)
	}
	return archived, nil
}

// Purge removes the snapshot for id.
func (a *UserArchive) Purge(ctx context.Context, id string) error {
	if err := a.backend.Delete(ctx, a.Key(id)); err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return err
		}
		return fmt.Errorf("purge archived user %s: %w", id, err)
	}
	return nil
}
