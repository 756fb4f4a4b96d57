// Package consensus implements ConsensusStateMachine: a finite state
// machine over node roles (Normal, Trusted, Writer, Collect, WriteTx,
// Syncing) driven by network and timer events. The deep
// TrustedState -> TrustedMState -> TrustedVMState inheritance chain of
// the role protocol this is modeled on is collapsed here into one
// Trusted handler parameterized by two orthogonal flags (vector
// contributions received, matrix contributions received) rather than a
// class per combination.
package consensus
