// Package gateway defines the wire contract between the verification core's
// proof-construction helpers and a provider's off-chain data service, and a
// QUIC transport for it. The core never sees storage internals beyond the
// two request/response pairs here.
package gateway

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/gossamer/pkg/scale"
)

// Message discriminators. A request or response is exactly one variant,
// tagged by a single leading byte before the SCALE-encoded body.
const (
	tagUpload byte = iota
	tagRead
)

var (
	ErrEmptyMessage       = errors.New("gateway: empty message")
	ErrUnknownMessageKind = errors.New("gateway: unknown message kind")
)

// RemoteUploadDataRequest stores data under the requested location.
type RemoteUploadDataRequest struct {
	Location string
	Data     []byte
}

// RemoteUploadDataResponse returns the canonical location the data was
// stored under, which may differ from the requested one if the backend
// normalizes addressing.
type RemoteUploadDataResponse struct {
	Location string
}

// RemoteReadRequest fetches a batch of locations.
type RemoteReadRequest struct {
	Locations [][]byte
}

// RemoteReadResponse is positionally aligned with the request's locations.
// An entry is empty when that location could not be retrieved; a partial
// batch is not an error.
type RemoteReadResponse struct {
	Data [][]byte
}

// Request is the tagged union of the two request variants. Exactly one
// field is set.
type Request struct {
	Upload *RemoteUploadDataRequest
	Read   *RemoteReadRequest
}

// Response is the tagged union of the two response variants. Exactly one
// field is set.
type Response struct {
	Upload *RemoteUploadDataResponse
	Read   *RemoteReadResponse
}

func (r Request) Encode() ([]byte, error) {
	switch {
	case r.Upload != nil:
		return encodeTagged(tagUpload, *r.Upload)
	case r.Read != nil:
		return encodeTagged(tagRead, *r.Read)
	default:
		return nil, ErrEmptyMessage
	}
}

func DecodeRequest(data []byte) (Request, error) {
	if len(data) == 0 {
		return Request{}, ErrEmptyMessage
	}
	switch data[0] {
	case tagUpload:
		var req RemoteUploadDataRequest
		if err := scale.Unmarshal(data[1:], &req); err != nil {
			return Request{}, fmt.Errorf("decode upload request: %w", err)
		}
		return Request{Upload: &req}, nil
	case tagRead:
		var req RemoteReadRequest
		if err := scale.Unmarshal(data[1:], &req); err != nil {
			return Request{}, fmt.Errorf("decode read request: %w", err)
		}
		return Request{Read: &req}, nil
	default:
		return Request{}, ErrUnknownMessageKind
	}
}

func (r Response) Encode() ([]byte, error) {
	switch {
	case r.Upload != nil:
		return encodeTagged(tagUpload, *r.Upload)
	case r.Read != nil:
		return encodeTagged(tagRead, *r.Read)
	default:
		return nil, ErrEmptyMessage
	}
}

func DecodeResponse(data []byte) (Response, error) {
	if len(data) == 0 {
		return Response{}, ErrEmptyMessage
	}
	switch data[0] {
	case tagUpload:
		var resp RemoteUploadDataResponse
		if err := scale.Unmarshal(data[1:], &resp); err != nil {
			return Response{}, fmt.Errorf("decode upload response: %w", err)
		}
		return Response{Upload: &resp}, nil
	case tagRead:
		var resp RemoteReadResponse
		if err := scale.Unmarshal(data[1:], &resp); err != nil {
			return Response{}, fmt.Errorf("decode read response: %w", err)
		}
		return Response{Read: &resp}, nil
	default:
		return Response{}, ErrUnknownMessageKind
	}
}

func encodeTagged(tag byte, body interface{}) ([]byte, error) {
	encoded, err := scale.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode message body: %w", err)
	}
	return append([]byte{tag}, encoded...), nil
}
