package il

// Full names of framework members the protector's generated code touches.
const (
	TypeObject      = "System.Object"
	TypeUInt32      = "System.UInt32"
	TypeInt32       = "System.Int32"
	TypeByteArray   = "System.Byte[]"
	TypeStream      = "System.IO.Stream"
	TypeAssembly    = "System.Reflection.Assembly"
	TypeDeflate     = "System.IO.Compression.DeflateStream"
	TypeBinaryRead  = "System.IO.BinaryReader"
	TypeConstsCache = "System.Collections.Generic.Dictionary`2<System.UInt32,System.Object>"

	ConstsCacheCtor           = "System.Void " + TypeConstsCache + "::.ctor()"
	BitConverterGetBytes      = "System.Byte[] System.BitConverter::GetBytes(System.Int32)"
	BinaryReaderReadInt32     = "System.Int32 System.IO.BinaryReader::ReadInt32()"
	AssemblyGetModule         = "System.Reflection.Module System.Reflection.Assembly::GetModule(System.String)"
	ModuleGetScopeName        = "System.String System.Reflection.Module::get_ScopeName()"
	GetManifestResourceStream = "System.IO.Stream System.Reflection.Assembly::GetManifestResourceStream(System.String)"
)
