package txbuilder

import (
	"fmt"
	"strings"

	"github.com/stellar/go/txnbuild"
)

// nativeCode is the asset code shorthand for the native asset.
const nativeCode = "XLM"

// AssetRef is a caller-supplied asset reference: either the native asset
// (code "XLM" or nothing at all) or an issued asset identified by code and
// issuer.
type AssetRef struct {
	Code   string
	Issuer string
}

// Native reports whether the reference names the native asset.
func (r AssetRef) Native() bool {
	return r.Code == "" || strings.EqualFold(r.Code, nativeCode)
}

// Resolve maps the reference to an SDK asset. Resolution fails loudly on
// anything ambiguous: an issued asset without an issuer, or an issuer
// attached to the native code. It never silently substitutes native.
func (r AssetRef) Resolve() (txnbuild.Asset, error) {
	if r.Native() {
		if r.Issuer != "" {
			return nil, fmt.Errorf("%w: code %q with issuer %q", ErrAmbiguousAsset, r.Code, r.Issuer)
		}
		return txnbuild.NativeAsset{}, nil
	}
	if r.Issuer == "" {
		return nil, fmt.Errorf("%w: issued asset %q requires an issuer", ErrAmbiguousAsset, r.Code)
	}
	return txnbuild.CreditAsset{Code: r.Code, Issuer: r.Issuer}, nil
}

// resolvePath resolves an ordered intermediate path as supplied by a quote.
func resolvePath(refs []AssetRef) ([]txnbuild.Asset, error) {
	path := make([]txnbuild.Asset, 0, len(refs))
	for i, ref := range refs {
		asset, err := ref.Resolve()
		if err != nil {
			return nil, fmt.Errorf("path asset %d: %w", i, err)
		}
		path = append(path, asset)
	}
	return path, nil
}

// assetLabel renders an asset for the display descriptor.
func assetLabel(a txnbuild.BasicAsset) string {
	if a.IsNative() {
		return nativeCode
	}
	return a.GetCode() + ":" + a.GetIssuer()
}
