//go:build !hmap_custom_load_60 && !hmap_custom_load_70 && !hmap_custom_load_90

package hmap

// MaxLoadPercentage is the compile-time load factor bounding how full the
// table may get before a rehash is forced. A build carrying one of the
// hmap_custom_load_NN tags gets a sibling file redeclaring this constant
// instead; it is never threaded through call sites as a runtime parameter.
const MaxLoadPercentage = 80

// minCapacity is the floor placed under any rehash target.
const minCapacity = 8
