// Package credauth provides credential authentication primitives: salted
// password hashing, JWT issuance and validation, and the signup/signin
// flows that bind them to a pluggable user store.
//
// Password hashing:
//   - HashingService produces a SaltedHash pair from a plaintext and
//     verifies attempts against it in constant time. SHA256Hashing is the
//     reference scheme; Argon2Hashing offers a memory-hard alternative
//     over the same hash/salt contract, so stores migrate between the
//     two without schema changes.
//
// Tokens:
//   - TokenService mints HS256 JWTs carrying issuer, audience, expiry,
//     and a userId claim, and validates incoming tokens against the same
//     TokenConfig. Validation rejects bad signatures, wrong issuer or
//     audience, and expired tokens before any claim is trusted.
//
// Flows:
//   - AuthFlow implements SignUp and SignIn over a UserStore. SignUp
//     checks username availability before input validation; SignIn
//     collapses unknown users and wrong passwords into a single
//     invalid-credentials error so callers cannot probe for accounts.
//   - RegisterAuthRoutes mounts the HTTP surface, with the jwtware guard
//     protecting authenticated routes.
package credauth
