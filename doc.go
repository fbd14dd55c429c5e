/*
Package pipe allows to build and execute DSP pipelines.

Concept

This package offers an opinionated perspective to DSP. It's based on the
idea that the signal processing can have up to three stages:

    Source - the origin of signal;
    Processor - the manipulator of the signal;
    Sink - the destination of signal;

It implies the following constraints:

    Source and Sink are mandatory;
    There might be 0 to n Processors;
    All stages are executed sequentially.

Components

Each stage in the pipeline is implemented by components. For example,
wav.Source reads signal from wav file and fdsink.Sink writes it into an
open file descriptor. Components are instantiated with allocator
functions:

    SourceAllocatorFunc
    ProcessorAllocatorFunc
    SinkAllocatorFunc

Allocator functions return component structures and pre-allocate all
required resources and structures. Processors receive the properties of
their input signal and declare the properties of their output, so a
component can change the number of channels.

Component structures consist of mutable context, run closure, start and
flush hooks. Start hook is triggered before the first buffer, flush hook
is triggered when pipe is done or interrupted by error or stop. For
mutability, refer to mutable package documentation.

Routing and binding

To run the pipeline, one first need to build it. It starts with a routing:

    r := pipe.Routing{
        Source: wav.Source(path, false),
        Processors: pipe.Processors(
            throttle.Rate(0).Processor(),
            multiply.Const(0.5).Processor(),
        ),
        Sink: fdsink.Sink(fd, fdsink.Float32),
    }

Routing defines the order in which DSP components form the pipeline. Once
routing is defined, components can be bound together. It's done by creating
a pipe:

    p, err := pipe.New(bufferSize, r)

New executes all allocators provided by routings and binds components
together into the pipe.

Execution

Once pipe is built, it can be executed with run package:

    r := run.New(ctx, p)
    err := r.Wait()

Run will start and asynchronously execute all DSP components until either
any of the following things happen: the source is done; the pipe is
stopped; an error in any of the components occurred.
*/
package pipe
