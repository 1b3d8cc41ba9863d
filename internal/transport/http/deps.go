package http

import (
	"github.com/campus-connect/api/internal/infrastructure/dynamo"
	"github.com/campus-connect/api/internal/infrastructure/email"
	jwtinfra "github.com/campus-connect/api/internal/infrastructure/jwt"
	s3infra "github.com/campus-connect/api/internal/infrastructure/s3"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	ProfileRepo      *dynamo.ProfileRepo
	VerificationRepo *dynamo.VerificationRepo
	S3Store          *s3infra.Store
	Sender           email.Sender
	JWTProvider      *jwtinfra.Provider
}
