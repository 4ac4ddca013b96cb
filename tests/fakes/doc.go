// Package fakes provides in-memory test doubles for the cloud SDK clients
// used by the secret store backends.
//
// Each fake implements the narrow client interface its backend declares
// (secretstores.SecretManagerAPI, secretstores.SecretsManagerClientAPI,
// secretstores.SSMClientAPI, secretstores.STSClientAPI,
// secretstores.VaultLogical, secretstores.AzureKeyVaultAPI) and reproduces
// the service's not-found and already-exists errors, so backends can be run
// through the persistence contract without network access.
//
// Usage:
//
//	fake := fakes.NewFakeSecretsManagerClient()
//	store, _ := secretstores.NewAWSSecretsManagerStore(ctx, "aws",
//	    secretstores.AWSSecretsManagerConfig{},
//	    secretstores.WithSecretsManagerClient(fake),
//	    secretstores.WithSTSClient(&fakes.FakeSTSClient{}))
//	testutil.RunPersistenceContractTests(t, store)
package fakes
