package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"recipeagent"
	"recipeagent/storage"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Saver stores one checkpoint object per session under a key prefix. Used by
// the Lambda entrypoint, where nothing survives between invocations.
type S3Saver struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Saver(client *s3.Client, bucket, prefix string) *S3Saver {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Saver{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Saver) state(sessionID string) storage.State {
	return storage.NewS3State(s.client, s.bucket, s.prefix+sessionID+".json")
}

func (s *S3Saver) Save(ctx context.Context, sessionID string, state *recipeagent.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	return s.state(sessionID).Save(ctx, data)
}

func (s *S3Saver) Load(ctx context.Context, sessionID string) (*recipeagent.SessionState, error) {
	data, err := s.state(sessionID).Load(ctx)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var state recipeagent.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &state, nil
}

func (s *S3Saver) Delete(ctx context.Context, sessionID string) error {
	// Whole-object writes only; deletion just overwrites with a fresh state.
	return s.Save(ctx, sessionID, recipeagent.NewSessionState())
}
