package grpc

// proto.go hand-writes the service descriptor for bureau.v1.BureauService.
// Messages are the application DTOs and travel through the json codec.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/bureau-service/internal/application/dto"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "bureau.v1.BureauService"

// BureauServiceServer is the server API for BureauService.
type BureauServiceServer interface {
	AssessEligibility(context.Context, *dto.CreditCheckRequest) (*dto.EligibilityResponse, error)
	VerifyOTP(context.Context, *dto.VerifyOTPRequest) (*dto.ConsentResponse, error)
	PollConsent(context.Context, *dto.PollConsentRequest) (*dto.ConsentResponse, error)
	MatchLenders(context.Context, *dto.MatchLendersRequest) (*dto.LenderMatchResponse, error)
	GetCreditReport(context.Context, *dto.CreditReportRequest) (*dto.CreditReportResponse, error)
	mustEmbedUnimplementedBureauServiceServer()
}

// UnimplementedBureauServiceServer provides forward-compatible default implementations.
type UnimplementedBureauServiceServer struct{}

func (UnimplementedBureauServiceServer) AssessEligibility(context.Context, *dto.CreditCheckRequest) (*dto.EligibilityResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AssessEligibility not implemented")
}
func (UnimplementedBureauServiceServer) VerifyOTP(context.Context, *dto.VerifyOTPRequest) (*dto.ConsentResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method VerifyOTP not implemented")
}
func (UnimplementedBureauServiceServer) PollConsent(context.Context, *dto.PollConsentRequest) (*dto.ConsentResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method PollConsent not implemented")
}
func (UnimplementedBureauServiceServer) MatchLenders(context.Context, *dto.MatchLendersRequest) (*dto.LenderMatchResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method MatchLenders not implemented")
}
func (UnimplementedBureauServiceServer) GetCreditReport(context.Context, *dto.CreditReportRequest) (*dto.CreditReportResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetCreditReport not implemented")
}
func (UnimplementedBureauServiceServer) mustEmbedUnimplementedBureauServiceServer() {}

// RegisterBureauServiceServer registers srv with the gRPC server.
func RegisterBureauServiceServer(s grpclib.ServiceRegistrar, srv BureauServiceServer) {
	s.RegisterService(&bureauServiceDesc, srv)
}

var bureauServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BureauServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "AssessEligibility", Handler: unary("AssessEligibility", BureauServiceServer.AssessEligibility)},
		{MethodName: "VerifyOTP", Handler: unary("VerifyOTP", BureauServiceServer.VerifyOTP)},
		{MethodName: "PollConsent", Handler: unary("PollConsent", BureauServiceServer.PollConsent)},
		{MethodName: "MatchLenders", Handler: unary("MatchLenders", BureauServiceServer.MatchLenders)},
		{MethodName: "GetCreditReport", Handler: unary("GetCreditReport", BureauServiceServer.GetCreditReport)},
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "bureau/v1/bureau.proto",
}

// unary builds the method handler that generated code would emit for one
// request/response pair.
func unary[Req, Resp any](
	method string,
	call func(BureauServiceServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpclib.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BureauServiceServer), ctx, in)
		}
		info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BureauServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
