package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/quic-go/quic-go"
)

// ErrUnexpectedResponse is returned when the peer answers with the wrong
// response variant for the request that was sent.
var ErrUnexpectedResponse = errors.New("gateway: unexpected response variant")

// Client is the requester side of the gateway wire contract. It implements
// Service over a QUIC connection, one stream per request.
type Client struct {
	conn quic.Connection
}

func NewClient(conn quic.Connection) *Client {
	return &Client{conn: conn}
}

func (c *Client) Upload(ctx context.Context, location string, data []byte) (string, error) {
	resp, err := c.roundTrip(ctx, Request{Upload: &RemoteUploadDataRequest{
		Location: location,
		Data:     data,
	}})
	if err != nil {
		return "", err
	}
	if resp.Upload == nil {
		return "", ErrUnexpectedResponse
	}
	return resp.Upload.Location, nil
}

func (c *Client) Read(ctx context.Context, locations [][]byte) ([][]byte, error) {
	resp, err := c.roundTrip(ctx, Request{Read: &RemoteReadRequest{Locations: locations}})
	if err != nil {
		return nil, err
	}
	if resp.Read == nil {
		return nil, ErrUnexpectedResponse
	}
	return resp.Read.Data, nil
}

func (c *Client) roundTrip(ctx context.Context, req Request) (Response, error) {
	stream, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("unable to open stream: %w", err)
	}
	defer stream.Close()

	reqBytes, err := req.Encode()
	if err != nil {
		return Response{}, fmt.Errorf("unable to encode request: %w", err)
	}
	if err := WriteMessageWithContext(ctx, stream, reqBytes); err != nil {
		return Response{}, fmt.Errorf("unable to write request message: %w", err)
	}

	msg, err := ReadMessageWithContext(ctx, stream)
	if err != nil {
		return Response{}, fmt.Errorf("unable to read response message: %w", err)
	}
	return DecodeResponse(msg)
}
