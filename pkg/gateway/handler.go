package gateway

import (
	"context"
	"fmt"

	"github.com/quic-go/quic-go"

	"github.com/stornetlabs/stornet/pkg/log"
)

// StreamHandler serves the gateway wire contract on one QUIC stream:
//
// Requester -> Data service
//
// --> Request (upload or read)
// <-- Response (matching variant)
// <-- FIN
type StreamHandler struct {
	svc Service
}

func NewStreamHandler(svc Service) *StreamHandler {
	return &StreamHandler{svc: svc}
}

func (h *StreamHandler) HandleStream(ctx context.Context, stream quic.Stream) error {
	msg, err := ReadMessageWithContext(ctx, stream)
	if err != nil {
		return fmt.Errorf("unable to read request message: %w", err)
	}

	req, err := DecodeRequest(msg)
	if err != nil {
		return fmt.Errorf("unable to decode request: %w", err)
	}

	resp, err := h.dispatch(ctx, req)
	if err != nil {
		return err
	}

	respBytes, err := resp.Encode()
	if err != nil {
		return fmt.Errorf("unable to encode response: %w", err)
	}
	if err := WriteMessageWithContext(ctx, stream, respBytes); err != nil {
		return fmt.Errorf("unable to write response message: %w", err)
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("unable to close stream: %w", err)
	}
	return nil
}

func (h *StreamHandler) dispatch(ctx context.Context, req Request) (Response, error) {
	switch {
	case req.Upload != nil:
		location, err := h.svc.Upload(ctx, req.Upload.Location, req.Upload.Data)
		if err != nil {
			return Response{}, fmt.Errorf("upload failed: %w", err)
		}
		return Response{Upload: &RemoteUploadDataResponse{Location: location}}, nil

	case req.Read != nil:
		data, err := h.svc.Read(ctx, req.Read.Locations)
		if err != nil {
			return Response{}, fmt.Errorf("read failed: %w", err)
		}
		log.Gateway.Debug().Int("locations", len(req.Read.Locations)).Msg("served read batch")
		return Response{Read: &RemoteReadResponse{Data: data}}, nil

	default:
		return Response{}, ErrEmptyMessage
	}
}
