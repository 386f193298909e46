package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sakashimaa/pos-engine/pkg/utils"
	googleGrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

// CodecName is the content subtype clients select with
// grpc.CallContentSubtype to reach the order and table services.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// unaryMethod builds a method descriptor that decodes and validates Req, then
// hands it to call through the server's interceptor chain.
func unaryMethod[S any, Req any](service, name string, call func(S, context.Context, *Req) (any, error)) googleGrpc.MethodDesc {
	return googleGrpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor googleGrpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, status.Error(codes.InvalidArgument, "malformed request")
			}

			handler := func(ctx context.Context, req any) (any, error) {
				if err := validate.Struct(req); err != nil {
					return nil, invalidArgument(err)
				}
				return call(srv.(S), ctx, req.(*Req))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}

			info := &googleGrpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + name}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func invalidArgument(err error) error {
	fields := utils.FormatValidationError(err)
	parts := make([]string, 0, len(fields))
	for field, msg := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	slices.Sort(parts)

	return status.Error(codes.InvalidArgument, "validation failed: "+strings.Join(parts, "; "))
}
