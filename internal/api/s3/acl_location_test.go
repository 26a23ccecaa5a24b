package s3

import (
	"encoding/xml"
	"net/http"
	"testing"

	"github.com/piwi3910/nebulaio/pkg/s3types"
	"github.com/stretchr/testify/require"
)

func TestGetBucketLocation(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/loc-bucket", nil, nil)

	w := doRequest(r, http.MethodGet, "/loc-bucket?location", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result s3types.LocationConstraint
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))
}

func TestGetBucketLocationMissingBucket(t *testing.T) {
	_, r := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/no-such-bucket?location", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBucketACLRoundTrip(t *testing.T) {
	_, r := newTestRouter(t)
	doRequest(r, http.MethodPut, "/acl-bucket", nil, nil)

	w := doRequest(r, http.MethodGet, "/acl-bucket?acl", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var policy s3types.AccessControlPolicy
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &policy))
	require.Len(t, policy.AccessControlList.Grant, 1)
	require.Equal(t, "FULL_CONTROL", policy.AccessControlList.Grant[0].Permission)

	body, err := xml.Marshal(policy)
	require.NoError(t, err)
	w = doRequest(r, http.MethodPut, "/acl-bucket?acl", body, nil)
	require.Equal(t, http.StatusOK, w.Code)
}
