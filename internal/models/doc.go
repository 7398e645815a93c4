// Package models defines domain entities and persistence interfaces for the vidx video client.
//
// The package contains three categories of types:
//
// 1. Session entities: the identity the session manager owns
//   - [User] : Profile returned by the backend, lossless across JSON round trips
//   - [UserPatch] : Partial profile update merged into a [User]
//   - [Credentials] and [Registration] : Login and sign-up payloads
//
// 2. Data Transfer Objects (DTOs): Lightweight structs representing backend data
//   - [Video] : Video metadata as listed and shown by the backend
//   - [Danmu] : Timed overlay comment attached to a video
//   - [Page] : One page of a paginated listing
//
// 3. Persistence contracts and entities
//   - [CredentialStore] : Durable key/value store holding the serialized user and bearer token
//   - [Upload] : Local record of a publish job
package models
