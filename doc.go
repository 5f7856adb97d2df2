/*
Package cdixfer is a reliable, low-latency transport library for
uncompressed professional audio, video and ancillary-data streams over
user-space RDMA-style datagram fabrics.

Applications hand the library a scatter-gather buffer describing one
media payload together with an identifier and timestamp; the library
fragments the payload into wire packets, transmits them through a
caller-supplied adapter, and at the receiver reassembles them into an
in-order scatter-gather buffer delivered by callback.

The transport engine proper lives in the pkg/ subpackages (protocol
framing, the baseline AVM configuration codec, the arena pool, the
scatter-gather list, the transmit packetizer, and the two receive
reorderers); this package is the AVM facade that wires them into a
single per-connection handle, the way gortsplib's Client and Server
wire their RTP/RTCP/SDP subpackages into one handle.
*/
package cdixfer
