// Package types defines the trait registry entities, the Store interface,
// configuration, and the standard error values shared by the engine, the
// storage backends, and the transport layer.
//
// Categories and variants are addressed two ways: by name (LayerID), which is
// what callers send over the wire, and by compact single-byte indices
// (StoredLayerID), which is what the engine stores and what compositions hold.
package types
