package deployform

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/raglabs/pipeline-dashboard/internal/models"
	"github.com/raglabs/pipeline-dashboard/internal/secrets"
)

// ErrNoDraft is returned when a user has no saved draft.
var ErrNoDraft = errors.New("no draft saved")

// draftUserID restricts user IDs usable as file names.
var draftUserID = regexp.MustCompile(`^[A-Za-z0-9._@-]+$`)

// Draft is the on-disk form of a saved deploy form. Secret values are
// age-encrypted; keys stay readable so the form can render its rows without
// the identity key.
type Draft struct {
	PipelineName string          `json:"pipeline_name"`
	RepoURL      string          `json:"repo_url"`
	SecretPairs  []encryptedPair `json:"secret_pairs,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type encryptedPair struct {
	Key string `json:"key"`
	// Value is base64 of the age ciphertext.
	Value string `json:"value"`
}

// DraftStore persists one deploy-form draft per user under a data directory,
// with secret values encrypted at rest.
type DraftStore struct {
	dir string
	enc *secrets.Service
}

// NewDraftStore creates the data directory if needed. The secrets service
// must be able to encrypt; decryption capability is only needed to restore
// secret values, not keys.
func NewDraftStore(dir string, enc *secrets.Service) (*DraftStore, error) {
	if !enc.CanEncrypt() {
		return nil, secrets.ErrNoRecipient
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating draft directory: %w", err)
	}
	return &DraftStore{dir: dir, enc: enc}, nil
}

func (d *DraftStore) path(userID string) (string, error) {
	if !draftUserID.MatchString(userID) {
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	return filepath.Join(d.dir, "draft-"+userID+".json"), nil
}

// Save writes the user's draft, replacing any previous one.
func (d *DraftStore) Save(userID string, s State) error {
	path, err := d.path(userID)
	if err != nil {
		return err
	}

	draft := Draft{
		PipelineName: s.PipelineName,
		RepoURL:      s.RepoURL,
		UpdatedAt:    time.Now().UTC(),
	}
	for _, pair := range s.SecretPairs {
		ct, err := d.enc.Encrypt([]byte(pair.Value))
		if err != nil {
			return fmt.Errorf("encrypting secret %q: %w", pair.Key, err)
		}
		draft.SecretPairs = append(draft.SecretPairs, encryptedPair{
			Key:   pair.Key,
			Value: base64.StdEncoding.EncodeToString(ct),
		})
	}

	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing draft: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads the user's draft back into form state. Secret values are
// decrypted when the service holds the identity key; otherwise the keys are
// restored with empty values so the user re-enters them.
func (d *DraftStore) Load(userID string) (State, error) {
	path, err := d.path(userID)
	if err != nil {
		return State{}, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, ErrNoDraft
	}
	if err != nil {
		return State{}, fmt.Errorf("reading draft: %w", err)
	}

	var draft Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return State{}, fmt.Errorf("decoding draft: %w", err)
	}

	s := State{
		PipelineName: draft.PipelineName,
		RepoURL:      draft.RepoURL,
	}
	for _, pair := range draft.SecretPairs {
		value := ""
		if d.enc.CanDecrypt() {
			ct, err := base64.StdEncoding.DecodeString(pair.Value)
			if err != nil {
				return State{}, fmt.Errorf("decoding secret %q: %w", pair.Key, err)
			}
			pt, err := d.enc.Decrypt(ct)
			if err != nil {
				return State{}, fmt.Errorf("decrypting secret %q: %w", pair.Key, err)
			}
			value = string(pt)
		}
		s.SecretPairs = append(s.SecretPairs, models.SecretPair{Key: pair.Key, Value: value})
	}
	return s, nil
}

// Delete removes the user's draft. Deleting a missing draft is not an error.
func (d *DraftStore) Delete(userID string) error {
	path, err := d.path(userID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing draft: %w", err)
	}
	return nil
}
