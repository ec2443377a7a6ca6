package adminauth

import (
	"encoding/json"
	"fmt"
)

// State is the orchestrator's position in the login state machine.
type State uint8

const (
	StateIdle State = iota
	StateAuthenticating
	StateLocked
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateLocked:
		return "locked"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// UserRecord is the user document returned by the backend on login. The raw
// fields are kept so callers can read attributes this package does not model.
type UserRecord struct {
	fields map[string]any
}

// NewUserRecord wraps fields. A nil map yields an empty record.
func NewUserRecord(fields map[string]any) *UserRecord {
	if fields == nil {
		fields = map[string]any{}
	}
	return &UserRecord{fields: fields}
}

func (u *UserRecord) ID() string {
	if id := u.String("_id"); id != "" {
		return id
	}
	return u.String("id")
}

func (u *UserRecord) Name() string  { return u.String("name") }
func (u *UserRecord) Email() string { return u.String("email") }
func (u *UserRecord) Role() string  { return u.String("role") }

// String returns the field as a string, formatting non-string scalars.
func (u *UserRecord) String(key string) string {
	if u == nil {
		return ""
	}
	switch v := u.fields[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64, bool, json.Number:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// Get returns the raw decoded value of key.
func (u *UserRecord) Get(key string) (any, bool) {
	if u == nil {
		return nil, false
	}
	v, ok := u.fields[key]
	return v, ok
}

// Fields returns a shallow copy of the record's fields.
func (u *UserRecord) Fields() map[string]any {
	if u == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(u.fields))
	for k, v := range u.fields {
		out[k] = v
	}
	return out
}

func (u *UserRecord) MarshalJSON() ([]byte, error) {
	if u == nil {
		return []byte("null"), nil
	}
	return json.Marshal(u.fields)
}

func (u *UserRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	u.fields = fields
	return nil
}

// Session is the client's view of the signed-in administrator.
type Session struct {
	User          *UserRecord
	Authenticated bool
}

// Result is returned by every Client operation. Error is the human-readable
// message; Err keeps the typed error for errors.Is / errors.As.
type Result struct {
	Success bool
	Error   string
	Payload any
	Err     error
}

func ok(payload any) Result {
	return Result{Success: true, Payload: payload}
}

func failed(err error) Result {
	if err == nil {
		err = ErrClientNotReady
	}
	return Result{Success: false, Error: err.Error(), Err: err}
}
