// Copyright (c) 2026 DEX-OS Team
// DEX-OS Trust Core - audit evidence and security management
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// ImportX509 converts every CERTIFICATE block in pemBytes into a
// Certificate: the id is the lowercase hex serial, the issuer is the issuer
// common name (or the full issuer DN when CN is empty), the payload is the
// DER TBS section and the signature is the X.509 signature value.
func ImportX509(pemBytes []byte) ([]Certificate, error) {
	const op = "import x509"
	var out []Certificate
	rest := pemBytes
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		xc, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, Wrap(KindInvalidArgument, op, "", err)
		}
		issuer := xc.Issuer.CommonName
		if issuer == "" {
			issuer = xc.Issuer.String()
		}
		out = append(out, Certificate{
			ID:        fmt.Sprintf("%x", xc.SerialNumber),
			Payload:   append([]byte(nil), xc.RawTBSCertificate...),
			Issuer:    issuer,
			ValidFrom: xc.NotBefore,
			ValidTo:   xc.NotAfter,
			Signature: append([]byte(nil), xc.Signature...),
		})
	}
	if len(out) == 0 {
		return nil, &Error{Kind: KindInvalidArgument, Op: op, Detail: "no CERTIFICATE blocks found"}
	}
	return out, nil
}

// ImportX509 adds every certificate in pemBytes to the manager. Ids that are
// already present are reported in skipped rather than failing the batch.
func (m *Manager) ImportX509(pemBytes []byte) (added []Certificate, skipped []string, err error) {
	certs, err := ImportX509(pemBytes)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range certs {
		if err := m.AddCertificate(c); err != nil {
			if KindOf(err) == KindAlreadyExists {
				skipped = append(skipped, c.ID)
				continue
			}
			return added, skipped, err
		}
		added = append(added, c)
	}
	return added, skipped, nil
}
