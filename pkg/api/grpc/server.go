// Package grpcapi serves the equation registry over gRPC. The service uses
// google.protobuf.Struct for every request and response, so clients need no
// generated stubs: any gRPC client can call it with structpb messages.
package grpcapi

import (
	"context"
	"fmt"
	"math"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/equations/pkg/expr"
	"github.com/lemonberrylabs/equations/pkg/store"
	"github.com/lemonberrylabs/equations/pkg/types"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "equations.v1.Equations"

// Full method names, usable with grpc.ClientConn.Invoke.
const (
	StoreEquationMethod    = "/" + ServiceName + "/StoreEquation"
	ListEquationsMethod    = "/" + ServiceName + "/ListEquations"
	GetEquationMethod      = "/" + ServiceName + "/GetEquation"
	EvaluateEquationMethod = "/" + ServiceName + "/EvaluateEquation"
	DeleteEquationMethod   = "/" + ServiceName + "/DeleteEquation"
)

// EquationsServer is the server API for the Equations service.
type EquationsServer interface {
	StoreEquation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEquations(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEquation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateEquation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteEquation(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Server implements EquationsServer on top of a store.
type Server struct {
	store store.Store
	grpc  *grpc.Server
}

// New creates a new gRPC server wrapping the given store.
func New(s store.Store) *Server {
	srv := &Server{store: s}

	gs := grpc.NewServer()
	gs.RegisterService(&serviceDesc, srv)
	srv.grpc = gs

	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// --- Equations Service ---

// StoreEquation parses and stores {equation}.
func (s *Server) StoreEquation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text := stringField(req, "equation")

	tree, err := expr.Parse(text)
	if err != nil {
		return nil, toStatus(err)
	}
	eq, err := s.store.Create(text, tree)
	if err != nil {
		return nil, toStatus(err)
	}

	return newStruct(map[string]interface{}{
		"equationId": eq.ID,
		"message":    "Equation stored successfully",
	})
}

// ListEquations returns {equations: [{equationId, equation}]}.
func (s *Server) ListEquations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	equations, err := s.store.List()
	if err != nil {
		return nil, toStatus(err)
	}

	items := make([]interface{}, len(equations))
	for i, eq := range equations {
		items[i] = map[string]interface{}{
			"equationId": eq.ID,
			"equation":   eq.Text,
		}
	}
	return newStruct(map[string]interface{}{"equations": items})
}

// GetEquation returns {equationId, equation, canonical}.
func (s *Server) GetEquation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	eq, err := s.store.Get(stringField(req, "equationId"))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]interface{}{
		"equationId": eq.ID,
		"equation":   eq.Text,
		"canonical":  expr.Render(eq.Tree),
	})
}

// EvaluateEquation evaluates {equationId, variables} and returns the result.
// Variables that are not numbers are rejected.
func (s *Server) EvaluateEquation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	eq, err := s.store.Get(stringField(req, "equationId"))
	if err != nil {
		return nil, toStatus(err)
	}

	vars := expr.Bindings{}
	if v, ok := req.GetFields()["variables"]; ok {
		obj := v.GetStructValue()
		if obj == nil {
			return nil, status.Error(codes.InvalidArgument, "variables must be an object")
		}
		for name, val := range obj.GetFields() {
			n, ok := val.GetKind().(*structpb.Value_NumberValue)
			if !ok {
				return nil, status.Errorf(codes.InvalidArgument, "variable %q must be a number", name)
			}
			vars[name] = n.NumberValue
		}
	}

	result, err := expr.Evaluate(eq.Tree, vars)
	if err != nil {
		return nil, toStatus(err)
	}

	out := map[string]interface{}{
		"equationId": eq.ID,
		"equation":   eq.Text,
	}
	// structpb encodes NaN and infinities as numbers, but they do not survive
	// a JSON rendering of the Struct, so send them as text.
	if math.IsNaN(result) || math.IsInf(result, 0) {
		out["result"] = fmt.Sprint(result)
	} else {
		out["result"] = result
	}
	return newStruct(out)
}

// DeleteEquation removes {equationId}.
func (s *Server) DeleteEquation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "equationId")
	if err := s.store.Delete(id); err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]interface{}{
		"equationId": id,
		"message":    "Equation deleted successfully",
	})
}

// --- Internal helpers ---

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return st, nil
}

// toStatus maps domain errors onto gRPC status codes and attaches the error
// fields as a Struct detail.
func toStatus(err error) error {
	ee, ok := types.AsExprError(err)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}

	code := codes.InvalidArgument
	switch {
	case ee.HasTag(types.TagNotFound):
		code = codes.NotFound
	case ee.Code >= 500:
		code = codes.Internal
	}

	st := status.New(code, ee.Message)
	detail, derr := structpb.NewStruct(ee.ToMap())
	if derr != nil {
		return st.Err()
	}
	if withDetail, derr := st.WithDetails(detail); derr == nil {
		st = withDetail
	}
	return st.Err()
}

// ReasonFromStatus extracts the error tag attached by the server, if any.
func ReasonFromStatus(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		detail, ok := d.(*structpb.Struct)
		if !ok {
			continue
		}
		tags := detail.GetFields()["tags"].GetListValue().GetValues()
		if len(tags) > 0 {
			return tags[len(tags)-1].GetStringValue()
		}
	}
	return ""
}

// --- Service descriptor ---

type unaryMethod func(EquationsServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EquationsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(EquationsServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EquationsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StoreEquation", Handler: unaryHandler(StoreEquationMethod, EquationsServer.StoreEquation)},
		{MethodName: "ListEquations", Handler: unaryHandler(ListEquationsMethod, EquationsServer.ListEquations)},
		{MethodName: "GetEquation", Handler: unaryHandler(GetEquationMethod, EquationsServer.GetEquation)},
		{MethodName: "EvaluateEquation", Handler: unaryHandler(EvaluateEquationMethod, EquationsServer.EvaluateEquation)},
		{MethodName: "DeleteEquation", Handler: unaryHandler(DeleteEquationMethod, EquationsServer.DeleteEquation)},
	},
	Streams: []grpc.StreamDesc{},
}
