package modbus

import (
	"fmt"
	"io"
	"time"

	mb "github.com/goburrow/modbus"
	"k8s.io/klog/v2"

	"vflowgateway/pkg/register"
	"vflowgateway/pkg/utils/binutil"
)

type wordReader interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// Reader issues bounded holding register reads covering the catalog's
// address span and reassembles the replies into a name to value mapping.
type Reader struct {
	Addr    string
	Port    int
	SlaveID byte
	Timeout time.Duration

	connect func() (wordReader, io.Closer, error)
}

func NewReader(device register.DeviceConfig) *Reader {
	r := &Reader{
		Addr:    device.IP,
		Port:    device.Port,
		SlaveID: defaultSlaveID,
		Timeout: dialTimeout,
	}
	r.connect = r.dial
	return r
}

func (r *Reader) dial() (wordReader, io.Closer, error) {
	handler := mb.NewTCPClientHandler(fmt.Sprintf("%s:%d", r.Addr, r.Port))
	handler.Timeout = r.Timeout
	handler.SlaveId = r.SlaveID
	if err := handler.Connect(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrConnectDevice, err)
	}
	return mb.NewClient(handler), handler, nil
}

// Read performs one acquisition cycle. It never fails to its caller:
// every failure path degrades to an empty mapping, and the caller treats
// an empty mapping as no data this cycle.
func (r *Reader) Read(catalog *register.Catalog) map[string]interface{} {
	if catalog.SpanCount() == 0 {
		return map[string]interface{}{}
	}

	client, closer, err := r.connect()
	if err != nil {
		klog.V(2).InfoS("Failed to connect modbus device", "addr", r.Addr, "port", r.Port, "err", err)
		return map[string]interface{}{}
	}
	defer closer.Close()

	words, ok := readSpan(client, catalog.MinAddress(), catalog.MaxAddress())
	if !ok {
		return map[string]interface{}{}
	}
	return mapValues(catalog, words)
}

type chunk struct {
	start uint16
	count uint16
}

// chunks covers [min, max] with reads of at most MaxReadCount words each.
func chunks(min, max uint16) []chunk {
	cs := make([]chunk, 0, (int(max)-int(min))/MaxReadCount+1)
	for cursor := uint32(min); cursor <= uint32(max); {
		count := uint32(max) - cursor + 1
		if count > MaxReadCount {
			count = MaxReadCount
		}
		cs = append(cs, chunk{start: uint16(cursor), count: uint16(count)})
		cursor += count
	}
	return cs
}

// readSpan collects raw words for the whole span. A device exception or a
// transport failure aborts the cycle; a chunk that comes back empty is
// tolerated and its addresses simply stay absent.
func readSpan(client wordReader, min, max uint16) (map[uint16]uint16, bool) {
	words := make(map[uint16]uint16, int(max)-int(min)+1)
	for _, c := range chunks(min, max) {
		result := readChunk(client, c)
		switch result.Outcome {
		case readOk:
			if len(result.Words) == 0 {
				klog.V(2).InfoS("Modbus read returned no words", "start", c.start, "count", c.count)
				continue
			}
			for i, w := range result.Words {
				words[c.start+uint16(i)] = w
			}
		case readDeviceError:
			klog.V(1).InfoS("Modbus device exception, aborting read cycle",
				"start", c.start, "count", c.count, "exceptionCode", result.ExceptionCode)
			return nil, false
		case readTimeout:
			klog.V(1).InfoS("Modbus read timeout, aborting read cycle", "start", c.start, "err", result.Err)
			return nil, false
		default:
			klog.V(1).InfoS("Modbus read failed, aborting read cycle", "start", c.start, "err", result.Err)
			return nil, false
		}
	}
	return words, true
}

func readChunk(client wordReader, c chunk) chunkResult {
	data, err := client.ReadHoldingRegisters(c.start, c.count)
	if err != nil {
		return classifyReadError(c.start, err)
	}
	return chunkResult{Outcome: readOk, Start: c.start, Words: binutil.WordsBigEndian(data)}
}

// mapValues resolves every catalog definition against the raw words,
// reinterpreting signed registers from two's complement. A definition
// whose address yielded no data maps to nil.
func mapValues(catalog *register.Catalog, words map[uint16]uint16) map[string]interface{} {
	values := make(map[string]interface{}, len(catalog.Definitions()))
	for _, def := range catalog.Definitions() {
		w, present := words[def.Address]
		if !present {
			klog.V(2).InfoS("Register defined but absent from read data", "name", def.Name, "address", def.Address)
			values[def.Name] = nil
			continue
		}
		if def.DataType.Signed() && w > 0x7FFF {
			values[def.Name] = int(w) - 0x10000
		} else {
			values[def.Name] = int(w)
		}
	}
	return values
}
