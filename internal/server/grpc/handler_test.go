package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/server/api"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/mail"
	"github.com/dmitrijs2005/accountkeeper/internal/server/media"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestStack(t *testing.T) (*api.Dispatcher, *services.AccountService) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()

	m := repomanager.NewMemoryRepositoryManager()
	accounts := services.NewAccountService(m, mail.NewLogSender(nopLogger{}), nopLogger{}, cfg)
	uploads := services.NewMediaService(m, media.NewS3Presigner(cfg))
	return api.NewDispatcher(accounts, uploads, nopLogger{}), accounts
}

func newTestDispatcher(t *testing.T) *api.Dispatcher {
	d, _ := newTestStack(t)
	return d
}

// startServer serves a fresh stack on a loopback port and returns a client
// connection to it.
func startServer(t *testing.T) *grpc.ClientConn {
	t.Helper()
	d, accounts := newTestStack(t)
	srv := NewGRPCServer("", nopLogger{}, d, accounts.Tokens())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///"+lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return conn
}

func invoke(t *testing.T, ctx context.Context, conn *grpc.ClientConn, op string, vars map[string]any) map[string]any {
	t.Helper()
	in, err := structpb.NewStruct(vars)
	require.NoError(t, err)

	out := &structpb.Struct{}
	require.NoError(t, conn.Invoke(ctx, FullMethod(op), in, out))
	return out.AsMap()
}

func TestServiceDesc(t *testing.T) {
	desc := serviceDesc([]string{"a", "b"})
	assert.Equal(t, ServiceName, desc.ServiceName)
	require.Len(t, desc.Methods, 2)
	assert.Equal(t, "b", desc.Methods[1].MethodName)
	assert.Equal(t, "/accountkeeper.v1.AccountService/a", FullMethod("a"))
}

func TestGRPC_RegisterVerifyCurrentAccount(t *testing.T) {
	conn := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	env := invoke(t, ctx, conn, api.OpCreateAccount, map[string]any{
		"username": "alice",
		"fullName": "Alice",
		"phone":    "0300",
		"email":    "alice@x.io",
		"password": "password1",
		"role":     "user",
		"age":      30,
	})
	require.Equal(t, true, env["success"], env["message"])
	code, ok := env["data"].(string)
	require.True(t, ok)

	env = invoke(t, ctx, conn, api.OpVerifyAccount, map[string]any{"phone": "0300", "otp": code})
	require.Equal(t, true, env["success"], env["message"])
	token := env["data"].(string)

	env = invoke(t, ctx, conn, api.OpGetCurrentAccount, nil)
	assert.Equal(t, false, env["success"])
	assert.Equal(t, "unauthenticated", env["kind"])

	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	env = invoke(t, authed, conn, api.OpGetCurrentAccount, nil)
	require.Equal(t, true, env["success"], env["message"])
	account := env["data"].(map[string]any)
	assert.Equal(t, "alice", account["username"])
	assert.Equal(t, float64(30), account["age"])
	assert.NotContains(t, account, "salt")

	viaHeader := metadata.AppendToOutgoingContext(ctx, "access_token", token)
	env = invoke(t, viaHeader, conn, api.OpGetCurrentAccount, nil)
	assert.Equal(t, true, env["success"])
}

func TestGRPC_FailuresAreEnvelopes(t *testing.T) {
	conn := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	env := invoke(t, ctx, conn, api.OpAuthenticate, map[string]any{"phone": "0300"})
	assert.Equal(t, false, env["success"])
	assert.Equal(t, "validation_error", env["kind"])
	assert.Equal(t, "Password is required", env["message"])
	assert.Nil(t, env["data"])

	forged := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer not-a-jwt")
	env = invoke(t, forged, conn, api.OpListAccounts, nil)
	assert.Equal(t, "unauthenticated", env["kind"])
}

func TestGRPC_UnknownMethod(t *testing.T) {
	conn := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := conn.Invoke(ctx, FullMethod("dropDatabase"), &structpb.Struct{}, &structpb.Struct{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestCall_UnknownOperation(t *testing.T) {
	s := NewGRPCServer("", nopLogger{}, newTestDispatcher(t), staticTokens{})

	_, err := s.Call(context.Background(), "dropDatabase", nil)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}
