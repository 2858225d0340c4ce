// Package k8sproject manages the cluster project an integration test run
// deploys into.
//
// A Manager makes sure the run holds a valid token, creates the project
// (a namespace, or an OpenShift project) when it is missing, and deletes it
// at the end of the run, but only when this run created it. The project is
// also deleted when the process receives SIGINT or SIGTERM. Management
// handles resolve a URL through the API server pod proxy for a workload
// that is not reachable from outside the cluster.
//
// # Basic Usage
//
//	import "github.com/giantswarm/k8sproject"
//
//	ctx := context.Background()
//
//	mgr := k8sproject.NewManager(
//	    k8sproject.WithMasterURL("https://api.example.com:6443"),
//	    k8sproject.WithCredentials("developer", "secret"),
//	    k8sproject.WithToken(os.Getenv("OPENSHIFT_TOKEN")),
//	)
//	if err := mgr.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Shutdown()
//
//	if err := mgr.EnsureProject(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	h, err := mgr.ManagementHandle(map[string]string{"app": "eap"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	u, err := h.URL(ctx, 9990)
//
// # Test Suites
//
// Suite wraps a test binary with ordered setup and teardown hooks:
//
//	func TestMain(m *testing.M) {
//	    k8sproject.NewSuite(k8sproject.NewManager(opts...)).TestMain(m)
//	}
//
// # Authentication
//
// A session without a token fails with an *AuthenticationError whose
// message contains a login command with a freshly issued token. An expired
// token is replaced transparently; every client and handle observes the
// new token on its next request.
package k8sproject
