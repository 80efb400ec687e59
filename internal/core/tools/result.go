package tools

import (
	"encoding/json"
)

// Result is the outcome of one tool operation. Exactly one of Payload and
// Err is meaningful.
type Result struct {
	Payload interface{}
	Err     string
}

func ok(payload interface{}) Result {
	return Result{Payload: payload}
}

func fail(err error) Result {
	return Result{Err: err.Error()}
}

func failf(msg string) Result {
	return Result{Err: msg}
}

func (r Result) Failed() bool {
	return r.Err != ""
}

// String renders the result as the model will read it.
func (r Result) String() string {
	if r.Failed() {
		return "Error: " + r.Err
	}
	out, err := json.Marshal(r.Payload)
	if err != nil {
		return "Error: cannot encode result: " + err.Error()
	}
	return string(out)
}
