package client

import "context"

// StreamHandler provides callbacks for handling streaming responses.
// Exactly one of OnError and OnComplete is called.
type StreamHandler struct {
	// OnText is called for each non-empty text chunk, in arrival order.
	OnText func(text string)

	// OnError is called when the stream fails or ctx is done.
	OnError func(err error)

	// OnComplete is called when the response is complete.
	OnComplete func(response *Response)
}

// ProcessStream consumes sr on the calling goroutine, dispatching to handler.
func ProcessStream(ctx context.Context, sr *StreamingResponse, handler *StreamHandler) (*Response, error) {
	resp := &Response{}

	fail := func(err error) (*Response, error) {
		if handler.OnError != nil {
			handler.OnError(err)
		}
		return nil, err
	}
	complete := func() (*Response, error) {
		if handler.OnComplete != nil {
			handler.OnComplete(resp)
		}
		return resp, nil
	}

	for {
		select {
		case <-ctx.Done():
			return fail(context.Cause(ctx))
		case chunk, ok := <-sr.Chunks:
			if !ok {
				return complete()
			}

			if chunk.Error != nil {
				return fail(chunk.Error)
			}

			if chunk.Text != "" && handler.OnText != nil {
				handler.OnText(chunk.Text)
			}
			resp.absorb(chunk)

			if chunk.Done {
				return complete()
			}
		}
	}
}
