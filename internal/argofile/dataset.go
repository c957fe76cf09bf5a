// Package argofile reads Argo profile files into normalized float records.
package argofile

import (
	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// Dataset is an open scientific data container with global attributes and
// named variables.
type Dataset interface {
	Attribute(name string) (interface{}, bool)
	Variable(name string) (*Variable, bool)
	Close() error
}

// Variable is one named array with its attributes.
type Variable struct {
	Values     interface{}
	Attributes map[string]interface{}
}

// Attribute returns a variable attribute.
func (v *Variable) Attribute(name string) (interface{}, bool) {
	if v == nil || v.Attributes == nil {
		return nil, false
	}
	val, ok := v.Attributes[name]
	return val, ok
}

// OpenFunc opens a dataset at path.
type OpenFunc func(path string) (Dataset, error)

// OpenNetCDF opens a NetCDF classic or NetCDF-4 file.
func OpenNetCDF(path string) (Dataset, error) {
	group, err := netcdf.Open(path)
	if err != nil {
		return nil, err
	}
	return &netcdfDataset{group: group}, nil
}

type netcdfDataset struct {
	group api.Group
}

func (d *netcdfDataset) Attribute(name string) (interface{}, bool) {
	attrs := d.group.Attributes()
	if attrs == nil {
		return nil, false
	}
	return attrs.Get(name)
}

func (d *netcdfDataset) Variable(name string) (*Variable, bool) {
	v, err := d.group.GetVariable(name)
	if err != nil || v == nil {
		return nil, false
	}

	attrs := make(map[string]interface{})
	if v.Attributes != nil {
		for _, key := range v.Attributes.Keys() {
			if val, ok := v.Attributes.Get(key); ok {
				attrs[key] = val
			}
		}
	}
	return &Variable{Values: v.Values, Attributes: attrs}, true
}

func (d *netcdfDataset) Close() error {
	d.group.Close()
	return nil
}
