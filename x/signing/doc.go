/*
Package signing implements the signature scheme shared by request
authentication, proof submission and settlement.

A payload is ABI encoded as a single tuple, hashed with keccak256, wrapped
in the Ethereum personal-message envelope

	keccak256("\x19Ethereum Signed Message:\n32" || keccak256(abi(payload)))

and signed with a recoverable secp256k1 signature. Signatures are 65 bytes
[R || S || V]. Signing always emits V in {27, 28}; recovery accepts
V in {0, 1, 27, 28}.

Recovery never validates on its own: callers compare the recovered address
against the identity they expect, which is what Verify does.
*/
package signing
