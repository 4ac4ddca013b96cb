// Package secretstores implements the backends secret payloads are
// persisted in and the registry that builds them from secretsplit.yaml.
//
// Every backend implements secretstore.Persistence: payloads are addressed
// by coordinate, a read of a never-written coordinate reports absent rather
// than failing, and writes are idempotent so a failed split can be retried.
//
// Supported types:
//
//	memory              process memory, sealed with memguard (ephemeral)
//	noop                discards writes, reads are always absent
//	sql                 postgres, mysql or sqlite table, one row per coordinate
//	gcp.secretmanager   one Secret Manager secret per coordinate
//	aws.secretsmanager  one Secrets Manager secret per coordinate
//	aws.ssm             one SecureString parameter per coordinate
//	vault               HashiCorp Vault KV v1 or v2
//	azure.keyvault      one Key Vault secret per coordinate
//	keyring             the OS keychain
//	akeyless            one Akeyless static secret per coordinate
//
// Registry.Create wraps each backend in an InstrumentedStore, which applies
// the store's timeout_ms to every call, records Prometheus metrics and
// converts failures into *secretstore.StoreError values naming the store
// and coordinate. Payloads never appear in errors or metrics.
package secretstores
