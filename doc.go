/*
Package block wires independently running processing stages into a
dataflow graph of complex sample streams.

Concept

A Block is a named stage that runs its routine on a dedicated OS thread.
It may have one producer endpoint and one consumer endpoint:

    Producer - writes batches of at most MTU samples;
    Consumer - reads batches of at least MRU samples.

Endpoints have a shape. Single endpoints are linked point-to-point,
Multi endpoints are linked one producer to several consumers.

Connections

Blocks never call each other. They exchange samples through connections
built by the topology functions before any block is started:

    p, err := block.ConnectOneToOne(source, sink)
    n, err := block.ConnectOneToMany(source, []*block.Block{a, b, c})

A point-to-point connection (Pipe) is a bounded circular buffer guarded by
a mutex and a condition variable. Push blocks while the buffer is full,
Pop blocks while there is not enough data.

A fan-out connection (FanOut) is a flat buffer shared by the producer and
all consumers. Access is ordered by two barriers: consumers read only
after the producer finished its write, and the producer writes the next
batch only after every consumer finished reading.

Capacity of both kinds is fixed at connect time:

    max(8 x producer MTU, 2 x largest consumer MRU)

Execution

    n, err := block.StartAll(source, sink)

Each routine receives its Ports, an immutable view of the connected
inlet and outlet. Routines run until the input reports io.EOF, which
happens once the upstream producer signals shutdown and the buffer is
drained. A producer signals shutdown with Outlet.Shutdown.

After every block has returned, connections are torn down with the
Disconnect functions.
*/
package block
