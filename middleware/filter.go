package middleware

import (
	"net/http"
)

// Rejection is a filter's refusal of a request. Err is one of the
// forumguard sentinels and is what observers should branch on.
type Rejection struct {
	Status            int
	Code              string
	Message           string
	Err               error
	RetryAfterSeconds int
}

// Filter inspects a request before any handler runs. It may set response
// headers or cookies on w but must not write a body. A nil result admits
// the request.
type Filter interface {
	Check(w http.ResponseWriter, r *http.Request) *Rejection
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(w http.ResponseWriter, r *http.Request) *Rejection

func (f FilterFunc) Check(w http.ResponseWriter, r *http.Request) *Rejection {
	return f(w, r)
}

// Pipeline runs filters in order and stops at the first rejection.
type Pipeline struct {
	filters  []Filter
	onReject func(*http.Request, *Rejection)
}

func NewPipeline(filters ...Filter) *Pipeline {
	return &Pipeline{filters: filters}
}

// OnReject registers fn to observe every rejection, for metrics and audit.
func (p *Pipeline) OnReject(fn func(*http.Request, *Rejection)) *Pipeline {
	p.onReject = fn
	return p
}

// Then wraps next so that it only runs for admitted requests.
func (p *Pipeline) Then(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, f := range p.filters {
			rej := f.Check(w, r)
			if rej == nil {
				continue
			}
			if p.onReject != nil {
				p.onReject(r, rej)
			}
			writeErrorBody(w, rej.Status, errorBody{
				Error:             rej.Code,
				Message:           rej.Message,
				RetryAfterSeconds: rej.RetryAfterSeconds,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
