package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://catalogs/achievements/v2.yaml")
	require.NoError(t, err)
	assert.Equal(t, "catalogs", bucket)
	assert.Equal(t, "achievements/v2.yaml", key)
}

func TestParseS3URI_Invalid(t *testing.T) {
	for _, uri := range []string{
		"https://catalogs/achievements.yaml",
		"s3:///achievements.yaml",
		"s3://catalogs",
		"s3://catalogs/",
	} {
		_, _, err := ParseS3URI(uri)
		assert.Error(t, err, uri)
	}
}
