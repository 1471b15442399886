// Package clientip resolves the address a rate-limit decision should key on.
//
// The resolver understands X-Forwarded-For chains, a single X-Real-IP header
// and the transport peer address. When a trusted proxy set is configured the
// chain is walked from the closest hop outwards and trusted hops are skipped,
// so a client cannot choose its own key by prepending addresses.
//
// Without a trusted proxy set the leftmost forwarded address wins. That value
// is client-controlled and therefore spoofable; deployments behind a proxy
// must configure the proxy addresses.
//
// # What this package must NOT do
//
//   - Perform I/O or DNS lookups.
//   - Return anything other than a canonical IP string or [Unknown].
package clientip
