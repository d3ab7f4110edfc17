package alicloud

import (
	"errors"
)

var (
	ErrMissingAccessKeyID     = errors.New("ALICLOUD_ACCESS_KEY_ID environment variable is not set")
	ErrMissingAccessKeySecret = errors.New("ALICLOUD_ACCESS_KEY_SECRET environment variable is not set")
	ErrMissingConfig          = errors.New("alicloud credentials not found: set ALICLOUD_ACCESS_KEY_ID/ALICLOUD_ACCESS_KEY_SECRET or ~/.pftp/alicloud")
	ErrNoInstances            = errors.New("no running instances matched cloud group")
	ErrResourceNotFound       = errors.New("resource not found")
)
