// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

const (
	// KVBucketNameSubscribers is the name of the KV bucket holding lists and subscription records.
	KVBucketNameSubscribers = "mailing-list-subscribers"

	// KVKeyListPrefix is the key pattern for mailing lists: lists.<domain hash>.<list hash>
	KVKeyListPrefix = "lists"

	// KVKeyMemberPrefix is the key pattern for subscription records: members.<list hash>.<subscriber hash>
	KVKeyMemberPrefix = "members"

	// RedisKeyExistingListsPrefix prefixes cached list enumerations
	RedisKeyExistingListsPrefix = "mlsub:existing_lists:"
)
