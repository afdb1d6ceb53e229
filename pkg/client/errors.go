package client

import "errors"

// ErrModelCall covers network and provider-side failures, including
// timeouts. Whole multi-step operations abort on it; no partial results are
// retained.
var ErrModelCall = errors.New("model call failed")

// ErrMalformedOutput means the model's response does not match the expected
// shape: a required field is missing, has the wrong JSON type, or the
// response is not parseable JSON at all.
var ErrMalformedOutput = errors.New("malformed model output")
