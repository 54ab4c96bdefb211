package service

import (
	"context"
	"crypto/ed25519"

	"zone_controller/internal/audit"
)

type AuditService struct {
	path string
	pub  ed25519.PublicKey
}

// NewAuditService verifies the journal at path. With a non-nil pub, line
// signatures are checked as well.
func NewAuditService(path string, pub ed25519.PublicKey) *AuditService {
	return &AuditService{path: path, pub: pub}
}

// Verify walks the whole journal. A missing file yields an error wrapping
// os.ErrNotExist.
func (s *AuditService) Verify(ctx context.Context) (audit.Result, error) {
	if err := ctx.Err(); err != nil {
		return audit.Result{}, err
	}
	var opts []audit.VerifyOption
	if s.pub != nil {
		opts = append(opts, audit.WithPublicKey(s.pub))
	}
	return audit.VerifyFile(s.path, opts...)
}
