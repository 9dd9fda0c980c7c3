// Package auth provides HMAC-based API key authentication for gRPC services.
//
// Keys are self-validating: the last segment is an HMAC-SHA256 over the rest of
// the key, keyed by the secret named in the key. No key table is needed, and
// rotating a secret out of CM_API_SECRET_N revokes every key it signed.
package auth

import (
	"context"
	"encoding/hex"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// contextKey is a typed key for context values to avoid collisions.
type contextKey string

// secretIDKey is the context key for the secret that signed the caller's key.
const secretIDKey = contextKey("secret_id")

// MetadataKey is the gRPC metadata header carrying the API key.
const MetadataKey = "x-api-key"

// healthPrefix is exempt so probes work without credentials.
const healthPrefix = "/grpc.health.v1.Health/"

// Authenticator validates API keys using HMAC-SHA256 signatures.
// Holds in-memory secret map for O(1) lookup.
type Authenticator struct {
	secrets map[string][]byte
}

// NewAuthenticator creates an authenticator over secret_id -> secret.
func NewAuthenticator(secrets map[string][]byte) *Authenticator {
	return &Authenticator{secrets: secrets}
}

// Enabled reports whether any secret is configured.
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.secrets) > 0
}

// Authenticate validates an API key and returns the signing secret's ID.
func (a *Authenticator) Authenticate(apiKey string) (string, error) {
	secretID, randomData, signature, err := ParseAPIKey(apiKey)
	if err != nil {
		return "", err
	}

	secret, ok := a.secrets[secretID]
	if !ok {
		return "", ErrUnknownKey
	}

	given, err := hex.DecodeString(signature)
	if err != nil {
		return "", ErrInvalidKeyFormat
	}
	unsigned := strings.Join([]string{keyPrefix, secretID, randomData}, "-")
	if !VerifyHMAC(ComputeHMAC(secret, unsigned), given) {
		return "", ErrInvalidKey
	}

	return secretID, nil
}

// UnaryInterceptor returns gRPC interceptor that authenticates requests.
func (a *Authenticator) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, healthPrefix) {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		apiKeys := md.Get(MetadataKey)
		if len(apiKeys) == 0 {
			return nil, status.Error(codes.Unauthenticated, ErrMissingKey.Error())
		}

		secretID, err := a.Authenticate(apiKeys[0])
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		ctx = context.WithValue(ctx, secretIDKey, secretID)
		return handler(ctx, req)
	}
}

// SecretIDFromContext extracts the authenticated secret ID from context.
// Returns empty string if not found.
func SecretIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(secretIDKey).(string); ok {
		return id
	}
	return ""
}
