//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision, avoiding manual naming in the Worker interface.
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

// Connection is a non-owning handle on a live transport channel.
// ID is unique per accepted transport connection and is what the registry
// matches on when the transport reports a close.
type Connection interface {
	ID() string
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry maps each online user to exactly one live connection.
type IRegistry interface {
	Register(userID domain.UserID, conn Connection)
	Lookup(userID domain.UserID) (Connection, bool)
	Unregister(conn Connection) (domain.UserID, bool)
	Snapshot() []domain.UserID
	View() ([]domain.UserID, []Connection)
	Changes() <-chan struct{}
}

type ISignaler interface {
	RelayTyping(ctx context.Context, from, to domain.UserID)
	RelaySocialEvent(ctx context.Context, target domain.UserID, e event.DomainEvent)
}

type IDeliveryCoordinator interface {
	Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	MarkDelivered(ctx context.Context, cmd domain.MarkDeliveredCommand) error
	MarkRead(ctx context.Context, cmd domain.MarkReadCommand) error
}

// IPresenceMirror copies the online set to an external store for observers
// outside the process. It never feeds back into the registry.
type IPresenceMirror interface {
	Publish(ctx context.Context, users []domain.UserID) error
}

type IOrchestrator interface {
	Dispatch(ctx context.Context, conn Connection, cmd domain.Command) error
	Disconnect(conn Connection)
	Start(ctx context.Context) error
	Stop()
}
