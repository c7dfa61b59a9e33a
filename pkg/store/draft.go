package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/flowsync/pkg/errors"
	"github.com/matzehuels/flowsync/pkg/flow"
	"github.com/matzehuels/flowsync/pkg/observability"
)

// Draft is one persisted editing session: the diagram text plus the
// layout positions the text cannot carry.
type Draft struct {
	ID        string                `json:"id" bson:"_id"`
	Name      string                `json:"name,omitempty" bson:"name,omitempty"`
	Code      string                `json:"code" bson:"code"`
	Positions map[string]flow.Point `json:"positions,omitempty" bson:"positions,omitempty"`
	UpdatedAt time.Time             `json:"updated_at" bson:"updated_at"`
}

// NewDraft creates a draft with a fresh UUID.
func NewDraft(code string, positions map[string]flow.Point) *Draft {
	return &Draft{
		ID:        uuid.NewString(),
		Code:      code,
		Positions: positions,
		UpdatedAt: time.Now().UTC(),
	}
}

// draftKey namespaces draft entries within the store keyspace.
func draftKey(id string) string { return "draft:" + id }

// SaveDraft validates and persists a draft.
func SaveDraft(ctx context.Context, s Store, d *Draft) error {
	if err := errors.ValidateDraftID(d.ID); err != nil {
		return err
	}
	d.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encoding draft %s", d.ID)
	}

	key := draftKey(d.ID)
	err = s.Set(ctx, key, data)
	observability.Store().OnSave(ctx, BackendName(s), key, len(data), err)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "saving draft %s", d.ID)
	}
	return nil
}

// LoadDraft retrieves a draft by ID. A missing draft yields a NOT_FOUND
// coded error.
func LoadDraft(ctx context.Context, s Store, id string) (*Draft, error) {
	if err := errors.ValidateDraftID(id); err != nil {
		return nil, err
	}

	key := draftKey(id)
	data, found, err := s.Get(ctx, key)
	observability.Store().OnLoad(ctx, BackendName(s), key, found, err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "loading draft %s", id)
	}
	if !found {
		return nil, errors.New(errors.ErrCodeNotFound, "draft %s not found", id)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decoding draft %s", id)
	}
	return &d, nil
}

// DeleteDraft removes a draft. Deleting a missing draft is not an error.
func DeleteDraft(ctx context.Context, s Store, id string) error {
	if err := errors.ValidateDraftID(id); err != nil {
		return err
	}

	key := draftKey(id)
	err := s.Delete(ctx, key)
	observability.Store().OnDelete(ctx, BackendName(s), key, err)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "deleting draft %s", id)
	}
	return nil
}
