// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import "context"

// ListProvisioner registers mailing lists on backends that keep their own
// list registry. Creating an existing list is not an error.
type ListProvisioner interface {
	CreateMailingList(ctx context.Context, list string) error
}
