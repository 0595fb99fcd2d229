/*
Package mpt implements a Merkle radix trie: a path-compressed trie over byte
string keys where every node carries a digest of its own content and of its
whole subtree.

Nodes own a key segment (the edge label from their parent), an optional
value and a set of children ordered by the first byte of their segments.
Children order fixes the order in which child digests are folded into the
parent digest, so two tries holding the same key/value pairs always have
the same root digest regardless of the insertion order.

The structure is kept canonical after every operation: no node (the root
included) has no value and exactly one child, and an empty root has an
empty segment. The digest function and the value encoder are pluggable,
see Hasher and Encoder.

Trie is not safe for concurrent use, at most one mutator may be active at
a time and readers must not run concurrently with a mutator.
*/
package mpt
