package router

import (
	"errors"

	"github.com/ruminaider/profilepop/internal/license"
	"github.com/ruminaider/profilepop/internal/profiles"
	"github.com/ruminaider/profilepop/internal/settings"
)

// ErrProRequired is returned for features the current license does not
// include.
var ErrProRequired = errors.New("pro feature")

// Kind classifies a failed request.
type Kind string

const (
	KindNotFound        Kind = "NotFound"
	KindLimitExceeded   Kind = "LimitExceeded"
	KindInvalidFormat   Kind = "InvalidFormat"
	KindInvalidProfile  Kind = "InvalidProfile"
	KindExternalFailure Kind = "ExternalFailure"
	KindUnknownAction   Kind = "UnknownAction"
	KindInternal        Kind = "Internal"
)

// Failure is the error half of a Response. Message is meant for the user,
// Detail for logs and developers.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (f *Failure) Error() string {
	if f.Detail != "" {
		return string(f.Kind) + ": " + f.Detail
	}
	return string(f.Kind) + ": " + f.Message
}

// Response is the single reply to a Request. Only the fields relevant to the
// request's action are set. Actions that return the collection always carry a
// non-nil Profiles, so an empty collection is sent as [].
type Response struct {
	Success  bool                  `json:"success"`
	Profiles []profiles.Profile    `json:"profiles,omitzero"`
	Profile  *profiles.Profile     `json:"profile,omitempty"`
	IsPro    *bool                 `json:"isPro,omitempty"`
	Status   *license.Capabilities `json:"status,omitempty"`
	External bool                  `json:"external,omitempty"`
	Document *profiles.Document    `json:"document,omitempty"`
	Error    *Failure              `json:"error,omitempty"`
}

// Classify maps an error from any layer to a Failure.
func Classify(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}

	kind, msg := KindInternal, "Something went wrong. Please try again."
	switch {
	case errors.Is(err, profiles.ErrNotFound):
		kind, msg = KindNotFound, "Profile not found."
	case errors.Is(err, profiles.ErrLimitExceeded):
		kind, msg = KindLimitExceeded, "Free version is limited. Upgrade to Pro for unlimited profiles!"
	case errors.Is(err, ErrProRequired):
		kind, msg = KindLimitExceeded, "This is a Pro feature. Upgrade to unlock!"
	case errors.Is(err, profiles.ErrInvalidProfile):
		kind, msg = KindInvalidProfile, "Please check the profile details."
	case errors.Is(err, profiles.ErrInvalidFormat), errors.Is(err, ErrMalformed), errors.Is(err, settings.ErrInvalidValue):
		kind, msg = KindInvalidFormat, "Please check the file format."
	case errors.Is(err, license.ErrInvalidKey):
		kind, msg = KindInvalidFormat, "The license key was not accepted."
	case errors.Is(err, license.ErrPurchaseCancelled):
		kind, msg = KindExternalFailure, "Purchase cancelled."
	case errors.Is(err, license.ErrExternal):
		kind, msg = KindExternalFailure, "The store could not be reached. Please try again."
	case errors.Is(err, ErrUnknownAction):
		kind, msg = KindUnknownAction, "Unknown action."
	}
	return &Failure{Kind: kind, Message: msg, Detail: err.Error()}
}

func failure(err error) Response {
	return Response{Success: false, Error: Classify(err)}
}

func boolPtr(b bool) *bool { return &b }

// listResponse wraps a collection so that it is never dropped from the wire.
func listResponse(list []profiles.Profile) Response {
	if list == nil {
		list = []profiles.Profile{}
	}
	return Response{Profiles: list}
}
