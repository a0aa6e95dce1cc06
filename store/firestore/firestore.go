package firestore

import (
	"context"
	"fmt"
	"time"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/quintans/go-trafficlight/trafficlight"
)

const deleteBatchSize = 100

type Entry struct {
	LightID   string    `firestore:"light_id"`
	Seq       int64     `firestore:"seq"`
	Phase     string    `firestore:"phase"`
	At        time.Time `firestore:"at"`
	ElapsedMs int64     `firestore:"elapsed_ms"`
}

func toEntry(t trafficlight.Transition) *Entry {
	return &Entry{
		LightID:   t.LightID,
		Seq:       t.Seq,
		Phase:     t.Phase.String(),
		At:        t.At.UTC(),
		ElapsedMs: t.Elapsed.Milliseconds(),
	}
}

func fromEntry(e *Entry) (trafficlight.Transition, error) {
	phase, err := trafficlight.ParsePhase(e.Phase)
	if err != nil {
		return trafficlight.Transition{}, fmt.Errorf("transition %d of '%s': %w", e.Seq, e.LightID, err)
	}
	return trafficlight.Transition{
		LightID: e.LightID,
		Seq:     e.Seq,
		Phase:   phase,
		At:      e.At.UTC(),
		Elapsed: time.Duration(e.ElapsedMs) * time.Millisecond,
	}, nil
}

type StoreOption func(*Store)

func CollectionPathOption(collectionPath string) StoreOption {
	return func(s *Store) {
		s.collectionPath = collectionPath
	}
}

// Store is a firestore transition journal.
type Store struct {
	client         *gfs.Client
	collectionPath string
}

func New(firestoreClient *gfs.Client, options ...StoreOption) *Store {
	ps := &Store{
		client:         firestoreClient,
		collectionPath: "transitions",
	}

	for _, o := range options {
		o(ps)
	}

	return ps
}

func (s *Store) collectionRef() *gfs.CollectionRef {
	return s.client.Collection(s.collectionPath)
}

func (s *Store) docRef(lightID string, seq int64) *gfs.DocumentRef {
	return s.collectionRef().Doc(fmt.Sprintf("%s-%d", lightID, seq))
}

func (s *Store) Append(ctx context.Context, t trafficlight.Transition) error {
	_, err := s.docRef(t.LightID, t.Seq).Create(ctx, toEntry(t))
	if status.Code(err) == codes.AlreadyExists {
		return fmt.Errorf("append transition %d of '%s': %w", t.Seq, t.LightID, trafficlight.ErrTransitionExists)
	}
	if err != nil {
		return fmt.Errorf("failed to append transition %d of '%s': %w", t.Seq, t.LightID, err)
	}

	return nil
}

func (s *Store) List(ctx context.Context, lightID string) ([]trafficlight.Transition, error) {
	iter := s.collectionRef().
		Where("light_id", "==", lightID).
		OrderBy("seq", gfs.Asc).
		Documents(ctx)
	defer iter.Stop()

	transitions := []trafficlight.Transition{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return transitions, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list transitions of '%s': %w", lightID, err)
		}
		t, err := decode(doc)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
}

func (s *Store) Last(ctx context.Context, lightID string) (*trafficlight.Transition, error) {
	iter := s.collectionRef().
		Where("light_id", "==", lightID).
		OrderBy("seq", gfs.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("last transition of '%s': %w", lightID, trafficlight.ErrTransitionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last transition of '%s': %w", lightID, err)
	}
	t, err := decode(doc)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (s *Store) Clear(ctx context.Context) error {
	for {
		// Get a batch of documents
		iter := s.collectionRef().Limit(deleteBatchSize).Documents(ctx)
		numDeleted := 0

		batch := s.client.Batch()
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to iterate on batch delete: %w", err)
			}

			batch.Delete(doc.Ref)
			numDeleted++
		}

		if numDeleted == 0 {
			return nil
		}

		_, err := batch.Commit(ctx)
		if err != nil {
			return fmt.Errorf("failed to batch delete: %w", err)
		}
	}
}

func decode(doc *gfs.DocumentSnapshot) (trafficlight.Transition, error) {
	entry := &Entry{}
	if err := doc.DataTo(entry); err != nil {
		return trafficlight.Transition{}, fmt.Errorf("failed to convert doc '%s' to entry: %w", doc.Ref.ID, err)
	}
	return fromEntry(entry)
}
