package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/taskboard/internal/store"
)

// ErrUnknownOperation is returned for operation names the bridge does not
// serve.
var ErrUnknownOperation = errors.New("unknown operation")

// ValidationError reports a request payload that was rejected before it
// reached the store.
type ValidationError struct {
	Op     string
	Fields []string
	Err    error
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid %s payload: %s", e.Op, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("invalid %s payload: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// handlerFunc serves one operation. The payload is the raw request body
// and may be empty.
type handlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Bridge validates requests from the UI process and dispatches them to
// the store. It holds no state of its own beyond the store.
type Bridge struct {
	store    store.Store
	validate *validator.Validate
	handlers map[string]handlerFunc
}

// New creates a Bridge serving every operation against s.
func New(s store.Store) *Bridge {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	b := &Bridge{store: s, validate: v}
	b.handlers = map[string]handlerFunc{
		"boards.getAll":             b.getBoards,
		"boards.saveAll":            b.saveBoards,
		"deletedTasks.getAll":       b.getDeletedTasks,
		"deletedTasks.saveAll":      b.saveDeletedTasks,
		"settings.getAll":           b.getSettings,
		"settings.saveAll":          b.saveSettings,
		"task.create":               b.createTask,
		"task.update":               b.updateTask,
		"task.delete":               b.deleteTask,
		"task.move":                 b.moveTask,
		"notifications.getAll":      b.getNotifications,
		"notifications.create":      b.createNotification,
		"notifications.markRead":    b.markNotificationRead,
		"notifications.hasBeenSent": b.hasBeenSent,
		"notes.getAll":              b.getNotes,
		"notes.create":              b.createNote,
		"notes.update":              b.updateNote,
		"notes.delete":              b.deleteNote,
		"notes.linkToTask":          b.linkNoteToTask,
		"notes.unlinkFromTask":      b.unlinkNoteFromTask,
		"notes.getContent":          b.getNoteContent,
		"notes.saveAll":             b.saveNotes,
		"store.status":              b.status,
	}
	return b
}

// Operations returns the names of every served operation, sorted.
func (b *Bridge) Operations() []string {
	ops := make([]string, 0, len(b.handlers))
	for op := range b.handlers {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Handle runs op with payload and returns a JSON-encodable result.
func (b *Bridge) Handle(ctx context.Context, op string, payload json.RawMessage) (any, error) {
	h, ok := b.handlers[op]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
	return h(ctx, payload)
}

// decode unmarshals payload into dst and validates the result. A missing
// or null payload is rejected.
func (b *Bridge) decode(op string, payload json.RawMessage, dst any) error {
	if isEmpty(payload) {
		return &ValidationError{Op: op, Err: errors.New("payload is required")}
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return &ValidationError{Op: op, Err: err}
	}

	var err error
	if reflect.Indirect(reflect.ValueOf(dst)).Kind() == reflect.Struct {
		err = b.validate.Struct(dst)
	} else {
		err = b.validate.Var(reflect.Indirect(reflect.ValueOf(dst)).Interface(), "dive")
	}
	if err != nil {
		return validationError(op, err)
	}
	return nil
}

// decodeID reads a payload that is a single non-empty id string.
func (b *Bridge) decodeID(op string, payload json.RawMessage) (string, error) {
	var id string
	if isEmpty(payload) {
		return "", &ValidationError{Op: op, Err: errors.New("id is required")}
	}
	if err := json.Unmarshal(payload, &id); err != nil {
		return "", &ValidationError{Op: op, Err: fmt.Errorf("expected an id string: %w", err)}
	}
	if err := b.validate.Var(id, "required"); err != nil {
		return "", &ValidationError{Op: op, Err: errors.New("id is required")}
	}
	return id, nil
}

func validationError(op string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Op: op, Err: err}
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		if fe.Param() != "" {
			fields = append(fields, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			fields = append(fields, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return &ValidationError{Op: op, Fields: fields, Err: err}
}

func isEmpty(payload json.RawMessage) bool {
	s := strings.TrimSpace(string(payload))
	return s == "" || s == "null"
}
