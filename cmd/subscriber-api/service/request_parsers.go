// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"net/url"

	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-mailing-list-subscriber-service/pkg/constants"
)

// optional returns a pointer to the form value when key is present, even if empty.
func optional(form url.Values, key string) *string {
	if !form.Has(key) {
		return nil
	}
	v := form.Get(key)
	return &v
}

// parseUpdateRequest builds the add/remove request of the list form.
// Confirmation is requested only with require_confirm=yes.
func parseUpdateRequest(form url.Values) service.UpdateRequest {
	return service.UpdateRequest{
		Add:            optional(form, constants.ParamAddSubscribers),
		Remove:         optional(form, constants.ParamRemoveSubscribers),
		Mode:           form.Get(constants.ParamSubscription),
		RequireConfirm: service.ShouldConfirm(service.ConfirmOnlyIfYes, form.Get(constants.ParamRequireConfirm)),
	}
}

// subscribeRequest holds the parsed subscribe form.
type subscribeRequest struct {
	Lists          string
	Mode           string
	RequireConfirm bool
}

// parseSubscribeRequest reads the subscribe form. Confirmation is requested
// unless require_confirm=no.
func parseSubscribeRequest(form url.Values) subscribeRequest {
	return subscribeRequest{
		Lists:          form.Get(constants.ParamLists),
		Mode:           form.Get(constants.ParamSubscription),
		RequireConfirm: service.ShouldConfirm(service.ConfirmUnlessNo, form.Get(constants.ParamRequireConfirm)),
	}
}

// subscribedListsQuery holds the flags of the subscribed lists lookup.
type subscribedListsQuery struct {
	EmailOnly     bool
	QueryAllLists bool
}

func parseSubscribedListsQuery(form url.Values) subscribedListsQuery {
	return subscribedListsQuery{
		EmailOnly:     form.Get(constants.ParamEmailOnly) == constants.FlagYes,
		QueryAllLists: form.Get(constants.ParamQueryAllLists) == constants.FlagYes,
	}
}
