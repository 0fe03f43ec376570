package checkout

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/tabpay/pkg/paysdk"
)

// FingerprintRequest is the input to a client-metadata-id resolution.
type FingerprintRequest struct {
	// HasUserLocationConsent gates location signals in risk scoring
	HasUserLocationConsent bool

	// ApplicationGUID is the per-installation identifier
	ApplicationGUID string

	// PairingID seeds the metadata ID so risk signals correlate with the
	// remote payment session
	PairingID string
}

// DeviceFingerprint resolves device/session identifiers used to correlate
// risk signals with a checkout attempt. It is only consulted when the caller
// did not supply a risk correlation ID of their own.
type DeviceFingerprint interface {
	// InstallationID returns the stable per-installation identifier.
	InstallationID(ctx context.Context) (string, error)

	// ClientMetadataID derives the risk-correlation identifier for one
	// checkout attempt.
	ClientMetadataID(ctx context.Context, req FingerprintRequest, cfg *paysdk.Configuration) (string, error)
}

// deviceFingerprint is the default collaborator: the installation GUID is
// minted once per process, and the metadata ID reuses the pairing ID when one
// exists so the two correlate trivially.
type deviceFingerprint struct {
	once sync.Once
	guid string
}

func (d *deviceFingerprint) InstallationID(context.Context) (string, error) {
	d.once.Do(func() { d.guid = uuid.NewString() })
	return d.guid, nil
}

func (d *deviceFingerprint) ClientMetadataID(
	ctx context.Context,
	req FingerprintRequest,
	_ *paysdk.Configuration,
) (string, error) {
	if req.PairingID != "" {
		return req.PairingID, nil
	}
	return uuid.NewString(), nil
}
