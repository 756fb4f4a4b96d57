// Package peers defines the identity and endpoint types shared by the
// neighbourhood, poolsync and consensus packages: PublicKey-keyed Peer
// records, their network Endpoint, and the Class that determines how the
// neighbourhood treats a given peer.
package peers
