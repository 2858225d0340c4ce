// Package oauth obtains bearer tokens from an OpenShift OAuth server with the
// username and password of a test account, the same way "oc login" does:
// the openshift-challenging-client answers a basic-auth request to the
// authorize endpoint with a redirect whose fragment carries the token.
package oauth
