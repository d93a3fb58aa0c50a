package native

import "time"

// GenPolicy selects the generation-check mode for writes.
type GenPolicy int

const (
	// GenIgnore writes regardless of the stored generation.
	GenIgnore GenPolicy = iota
	// GenEqual writes only when the stored generation equals the
	// generation supplied in metadata.
	GenEqual
	// GenGreater writes only when the supplied generation is greater
	// than the stored generation.
	GenGreater
)

// ExistsPolicy selects the existence constraint for writes.
type ExistsPolicy int

const (
	// ExistsIgnore writes whether or not the record exists.
	ExistsIgnore ExistsPolicy = iota
	// ExistsCreate writes only if the record does not exist.
	ExistsCreate
	// ExistsUpdate merges bins into an existing record; fails if missing.
	ExistsUpdate
	// ExistsReplace replaces an existing record entirely; fails if missing.
	ExistsReplace
	// ExistsCreateOrReplace replaces the record, creating it if missing.
	ExistsCreateOrReplace
)

// KeyPolicy selects whether the user key is stored alongside the record.
type KeyPolicy int

const (
	// KeyDigest stores only the key digest; reads return a digest-only key.
	KeyDigest KeyPolicy = iota
	// KeySend stores the user key with the record and returns it on reads.
	KeySend
)

// CommitLevel selects the write commit guarantee. Parsed and forwarded;
// the embedded backends treat every level as CommitAll.
type CommitLevel int

const (
	CommitAll CommitLevel = iota
	CommitMaster
)

// DefaultTimeout applies when a policy does not carry one. Zero means
// no deadline.
const DefaultTimeout = 0 * time.Second

// ReadPolicy configures get/select/exists calls.
type ReadPolicy struct {
	Timeout time.Duration
	Key     KeyPolicy
}

// NewReadPolicy returns a ReadPolicy with defaults.
func NewReadPolicy() *ReadPolicy {
	return &ReadPolicy{Timeout: DefaultTimeout, Key: KeyDigest}
}

// WritePolicy configures put calls.
type WritePolicy struct {
	Timeout     time.Duration
	Key         KeyPolicy
	Gen         GenPolicy
	Exists      ExistsPolicy
	CommitLevel CommitLevel
}

// NewWritePolicy returns a WritePolicy with defaults.
func NewWritePolicy() *WritePolicy {
	return &WritePolicy{
		Timeout:     DefaultTimeout,
		Key:         KeyDigest,
		Gen:         GenIgnore,
		Exists:      ExistsIgnore,
		CommitLevel: CommitAll,
	}
}

// RemovePolicy configures remove calls. Generation applies when Gen is
// not GenIgnore.
type RemovePolicy struct {
	Timeout    time.Duration
	Gen        GenPolicy
	Generation uint16
}

// NewRemovePolicy returns a RemovePolicy with defaults.
func NewRemovePolicy() *RemovePolicy {
	return &RemovePolicy{Timeout: DefaultTimeout, Gen: GenIgnore}
}

// OperatePolicy configures operate calls: the write policy surface plus
// the read-side key policy.
type OperatePolicy struct {
	Timeout     time.Duration
	Key         KeyPolicy
	Gen         GenPolicy
	CommitLevel CommitLevel
}

// NewOperatePolicy returns an OperatePolicy with defaults.
func NewOperatePolicy() *OperatePolicy {
	return &OperatePolicy{Timeout: DefaultTimeout, Key: KeyDigest, Gen: GenIgnore, CommitLevel: CommitAll}
}

// BatchPolicy configures batch-get calls.
type BatchPolicy struct {
	Timeout time.Duration
}

// NewBatchPolicy returns a BatchPolicy with defaults.
func NewBatchPolicy() *BatchPolicy {
	return &BatchPolicy{Timeout: DefaultTimeout}
}
