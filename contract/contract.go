//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"pair-relay/domain"
	"pair-relay/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one connection.
// Consume must never block the caller; a slow peer loses frames instead.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IRegistry is the presence registry: who is connected and where to reach them.
type IRegistry interface {
	Register(identity domain.Identity, sink EventSink) error
	Deregister(identity domain.Identity, sink EventSink) bool
	Count() int
	IsEmpty() bool
	Capacity() int
	Sink(identity domain.Identity) (EventSink, bool)
	Others(identity domain.Identity) []EventSink
	All() []EventSink
	Identities() []domain.Identity
}

// IMessageLedger is the bounded, ephemeral message log.
type IMessageLedger interface {
	Append(message domain.Message) (domain.Message, []domain.MessageID)
	Snapshot() []domain.Message
	Get(id domain.MessageID) (domain.Message, bool)
	Len() int
	MarkReacted(id domain.MessageID, emoji string, by domain.Identity) bool
	MarkViewedAt(id domain.MessageID, at time.Time) bool
	RemoveIfSeenOnce(id domain.MessageID) bool
	Clear()
}

type ISecretResolver interface {
	Resolve(secret string) (domain.Identity, error)
}

type ITokenIssuer interface {
	Issue(identity domain.Identity) (string, error)
	Verify(token string) (domain.Identity, error)
}

// IAuthService is the credential validator seen by the coordinator.
type IAuthService interface {
	Login(secret string) (domain.Token, domain.Identity, error)
	Resume(token string) (domain.Token, domain.Identity, error)
}

// IMessagePolicy turns a client request into a ledger-ready message or rejects it.
type IMessagePolicy interface {
	Prepare(sender domain.Identity, req event.MessageRequest) (domain.Message, error)
}
