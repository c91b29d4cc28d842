package middleware

import (
	"github.com/Kwendataxi/kwenda-sub010/internal/service/auth"
	"github.com/Kwendataxi/kwenda-sub010/pkg/logger"
)

type (
	TokenVerifier interface {
		Verify(token string) (*auth.Principal, error)
	}

	Middleware struct {
		tokens TokenVerifier
		log    logger.Logger
	}
)

func NewMiddleware(tokens TokenVerifier, log logger.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		log:    log,
	}
}
